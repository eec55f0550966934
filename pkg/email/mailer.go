package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/starter/pkg/validator"
)

// EmailSender delivers a single transactional email.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	ReplyTo  string `json:"reply_to,omitempty"` // overrides the configured support address
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the recipient, subject and body before anything is sent.
func (p SendEmailParams) Validate() error {
	if !validator.IsEmail(p.SendTo) {
		return fmt.Errorf("%w: invalid recipient address", ErrInvalidParams)
	}
	if p.ReplyTo != "" && !validator.IsEmail(p.ReplyTo) {
		return fmt.Errorf("%w: invalid reply-to address", ErrInvalidParams)
	}
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if strings.TrimSpace(p.BodyHTML) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
