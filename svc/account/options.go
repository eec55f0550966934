package account

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/starter/pkg/email"
)

// DefaultResetTokenTTL is how long an emailed reset link stays valid.
const DefaultResetTokenTTL = time.Hour

// MinPasswordLength applies to signup, password update and reset.
const MinPasswordLength = 8

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected
// rather than truncated.
const MaxPasswordBytes = 72

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithHasher(h Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock overrides time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithResetTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithMailer sets the sender used for reset links and confirmations.
func WithMailer(m email.EmailSender) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

func WithMailTemplates(t MailTemplates) Option {
	return func(s *Service) {
		if t.PasswordReset != nil {
			s.templates.PasswordReset = t.PasswordReset
		}
		if t.PasswordChanged != nil {
			s.templates.PasswordChanged = t.PasswordChanged
		}
	}
}

// WithSenderName sets the name signing outgoing emails.
func WithSenderName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.senderName = name
		}
	}
}
