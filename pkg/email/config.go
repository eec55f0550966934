package email

import (
	"fmt"
	"log/slog"
)

// Config holds email service configuration.
// Driver "postmark" needs both Postmark tokens; "dev" writes messages to DevDir.
type Config struct {
	Driver               string `env:"EMAIL_DRIVER" envDefault:"dev"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@example.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@example.com"`

	// TLSFallback enables a second delivery attempt with certificate
	// verification disabled when the first attempt fails on a certificate error.
	TLSFallback bool `env:"EMAIL_TLS_FALLBACK" envDefault:"false"`
}

// NewFromConfig builds the sender selected by cfg.Driver. With TLSFallback
// set, Postmark delivery gets a certificate-error retry.
func NewFromConfig(cfg Config, log *slog.Logger) (EmailSender, error) {
	switch cfg.Driver {
	case "dev", "":
		return NewDevSender(cfg.DevDir), nil
	case "postmark":
		primary, err := NewPostmarkClient(cfg)
		if err != nil {
			return nil, err
		}
		if !cfg.TLSFallback {
			return primary, nil
		}
		fallback, err := NewPostmarkClient(cfg, WithInsecureTLS())
		if err != nil {
			return nil, err
		}
		return NewCertificateFallback(primary, fallback, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}
