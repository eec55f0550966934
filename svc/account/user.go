package account

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a stored credential record.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	ResetTokenHash string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	Profile        Profile    `json:"profile"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Profile holds optional, user-editable details.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// Gravatar returns the avatar URL for the user's email.
// A non-positive size falls back to 200.
func (u *User) Gravatar(size int) string {
	if size <= 0 {
		size = 200
	}
	if u == nil || u.Email == "" {
		return fmt.Sprintf("https://gravatar.com/avatar/?s=%d&d=retro", size)
	}
	sum := md5.Sum([]byte(strings.ToLower(u.Email)))
	return fmt.Sprintf("https://gravatar.com/avatar/%s?s=%d&d=retro", hex.EncodeToString(sum[:]), size)
}

// Avatar prefers the profile picture over the Gravatar URL.
func (u *User) Avatar(size int) string {
	if u != nil && u.Profile.Picture != "" {
		return u.Profile.Picture
	}
	return u.Gravatar(size)
}

// DisplayName returns the profile name, or the email when no name is set.
func (u *User) DisplayName() string {
	if u.Profile.Name != "" {
		return u.Profile.Name
	}
	return u.Email
}

// HasPendingReset reports whether a reset token is set and still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != "" && u.ResetExpiresAt != nil && u.ResetExpiresAt.After(now)
}

func (u *User) clearReset() {
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
}

func (u *User) clone() *User {
	c := *u
	if u.ResetExpiresAt != nil {
		t := *u.ResetExpiresAt
		c.ResetExpiresAt = &t
	}
	return &c
}
