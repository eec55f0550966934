package email

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/starter/pkg/logger"
)

// certificateFallback makes at most two delivery attempts: the primary sender,
// then, only when the primary failed on a TLS certificate error, the fallback.
type certificateFallback struct {
	primary  EmailSender
	fallback EmailSender
	log      *slog.Logger
}

// NewCertificateFallback wraps primary with a single retry through fallback
// that happens only for certificate verification failures.
// Any other error from primary is returned unchanged.
func NewCertificateFallback(primary, fallback EmailSender, log *slog.Logger) EmailSender {
	if log == nil {
		log = logger.Discard()
	}
	return &certificateFallback{primary: primary, fallback: fallback, log: log}
}

func (s *certificateFallback) SendEmail(ctx context.Context, params SendEmailParams) error {
	err := s.primary.SendEmail(ctx, params)
	if err == nil || !IsCertificateError(err) {
		return err
	}

	s.log.WarnContext(ctx, "email delivery failed on certificate error, retrying with relaxed verification",
		logger.Component("email"),
		logger.Attempt(2),
		logger.Error(err),
	)

	if retryErr := s.fallback.SendEmail(ctx, params); retryErr != nil {
		return errors.Join(err, retryErr)
	}
	return nil
}

// IsCertificateError reports whether err was caused by TLS certificate verification.
func IsCertificateError(err error) bool {
	if err == nil {
		return false
	}
	var (
		unknownAuthority x509.UnknownAuthorityError
		invalidCert      x509.CertificateInvalidError
		hostname         x509.HostnameError
		verification     *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &hostname) ||
		errors.As(err, &verification)
}
