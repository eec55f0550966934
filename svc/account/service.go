package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/dmitrymomot/starter/pkg/email"
	"github.com/dmitrymomot/starter/pkg/email/templates"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/sanitizer"
	"github.com/dmitrymomot/starter/pkg/validator"
)

// Service implements the account workflows on top of a Store.
type Service struct {
	store      Store
	hasher     Hasher
	log        *slog.Logger
	now        func() time.Time
	resetTTL   time.Duration
	mailer     email.EmailSender
	templates  MailTemplates
	senderName string
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		hasher:     NewBcryptHasher(DefaultBcryptCost),
		log:        logger.Discard(),
		now:        time.Now,
		resetTTL:   DefaultResetTokenTTL,
		templates:  defaultMailTemplates(),
		senderName: "The Team",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("account"))
	return s
}

func passwordRules(password string) []validator.Rule {
	return []validator.Rule{
		validator.MinLen("password", password, MinPasswordLength),
		validator.MaxBytes("password", password, MaxPasswordBytes),
	}
}

// Register creates an account. The email is normalized before the
// uniqueness check; the store's constraint decides conflicts that race
// past the pre-check.
func (s *Service) Register(ctx context.Context, emailAddr, password string) (*User, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)
	rules := append([]validator.Rule{validator.ValidEmail("email", emailAddr)}, passwordRules(password)...)
	if err := validator.Apply(rules...); err != nil {
		return nil, err
	}

	if _, err := s.store.FindByEmail(ctx, emailAddr); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &User{
		ID:           uuid.New(),
		Email:        emailAddr,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, u); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "account registered", logger.UserID(u.ID), logger.Event("register"))
	return u, nil
}

// Authenticate checks credentials. An unknown email is ErrUserNotFound and a
// wrong password is ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, emailAddr, password string) (*User, error) {
	u, err := s.store.FindByEmail(ctx, sanitizer.NormalizeEmail(emailAddr))
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.FindByID(ctx, id)
}

// ProfileUpdate carries the editable account fields.
type ProfileUpdate struct {
	Email    string
	Name     string
	Gender   string
	Location string
	Website  string
}

func (p ProfileUpdate) sanitize() ProfileUpdate {
	clean := func(v string) string {
		return sanitizer.Apply(v, sanitizer.Trim, sanitizer.SingleLine, sanitizer.RemoveControlChars)
	}
	return ProfileUpdate{
		Email:    sanitizer.NormalizeEmail(p.Email),
		Name:     clean(p.Name),
		Gender:   clean(p.Gender),
		Location: clean(p.Location),
		Website:  sanitizer.NormalizeURL(p.Website),
	}
}

// UpdateProfile replaces the email and profile fields of the account.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	upd = upd.sanitize()
	if err := validator.Apply(
		validator.ValidEmail("email", upd.Email),
		validator.MaxLen("name", upd.Name, 100),
		validator.MaxLen("gender", upd.Gender, 50),
		validator.MaxLen("location", upd.Location, 100),
		validator.When(upd.Website != "", validator.ValidURL("website", upd.Website)),
	); err != nil {
		return nil, err
	}

	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Email = upd.Email
	u.Profile.Name = upd.Name
	u.Profile.Gender = upd.Gender
	u.Profile.Location = upd.Location
	u.Profile.Website = upd.Website
	u.UpdatedAt = s.now()

	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	if err := validator.Apply(passwordRules(password)...); err != nil {
		return err
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()
	if err := s.store.Save(ctx, u); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "password updated", logger.UserID(u.ID), logger.Event("password_update"))
	return nil
}

func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "account deleted", logger.UserID(id), logger.Event("delete"))
	return nil
}

// ResetRequest describes an issued reset token.
type ResetRequest struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// RequestPasswordReset issues a reset token for the account and emails link(token).
// Unknown emails return ErrUserNotFound without touching the store. When
// delivery fails the token stays stored and valid; the returned error wraps
// ErrMailDelivery and the ResetRequest is still returned.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string, link func(token string) string) (*ResetRequest, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)
	if err := validator.Apply(validator.ValidEmail("email", emailAddr)); err != nil {
		return nil, err
	}

	u, err := s.store.FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}

	token, digest, err := newResetToken()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.resetTTL)
	u.ResetTokenHash = digest
	u.ResetExpiresAt = &expiresAt
	u.UpdatedAt = s.now()
	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}

	req := &ResetRequest{Email: u.Email, Token: token, ExpiresAt: expiresAt}

	body := s.templates.PasswordReset(PasswordResetMail{
		Email:      u.Email,
		Link:       link(token),
		ExpiresAt:  expiresAt,
		SenderName: s.senderName,
	})
	if err := s.send(ctx, u.Email, subjectPasswordReset, "password-reset", body); err != nil {
		s.log.ErrorContext(ctx, "failed to deliver reset email",
			logger.UserID(u.ID), logger.Email(u.Email), logger.Error(err))
		return req, errors.Join(ErrMailDelivery, err)
	}

	s.log.InfoContext(ctx, "password reset requested", logger.UserID(u.ID), logger.Event("reset_request"))
	return req, nil
}

// ValidateResetToken returns the account owning token while it is unexpired.
// Unknown and expired tokens are both ErrTokenInvalid.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	u, err := s.store.FindByResetToken(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !u.HasPendingReset(s.now()) {
		return nil, ErrTokenInvalid
	}
	return u, nil
}

// ResetPassword sets a new password through a valid token and consumes the
// token. A confirmation email follows; its failure is only logged.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*User, error) {
	if err := validator.Apply(passwordRules(password)...); err != nil {
		return nil, err
	}
	u, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.clearReset()
	u.UpdatedAt = s.now()
	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "password reset completed", logger.UserID(u.ID), logger.Event("reset"))

	body := s.templates.PasswordChanged(PasswordChangedMail{Email: u.Email, SenderName: s.senderName})
	if err := s.send(ctx, u.Email, subjectPasswordChanged, "password-changed", body); err != nil {
		s.log.WarnContext(ctx, "failed to deliver password change confirmation",
			logger.UserID(u.ID), logger.Error(err))
	}
	return u, nil
}

func (s *Service) send(ctx context.Context, to, subject, tag string, body templ.Component) error {
	if s.mailer == nil {
		return fmt.Errorf("%w: no mailer configured", email.ErrInvalidConfig)
	}
	html, err := templates.Render(ctx, body)
	if err != nil {
		return err
	}
	return s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: html,
		Tag:      tag,
	})
}
