package validator

import (
	"net/mail"
	"net/url"
	"strings"
)

// ValidEmail accepts a bare address ("name@example.com") with a dotted domain.
// Display-name forms ("Name <a@b.c>") are rejected.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool { return IsEmail(value) },
		Error: ValidationError{
			Field:          field,
			Message:        "Please enter a valid email address",
			TranslationKey: "validation.email",
		},
	}
}

// IsEmail reports whether value passes ValidEmail. Anything that stores or
// sends to an address goes through this one check.
func IsEmail(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return false
	}
	local, domain, ok := strings.Cut(value, "@")
	if !ok || local == "" || len(local) > 64 {
		return false
	}
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".")
}

// ValidURL accepts absolute http and https URLs.
func ValidURL(field, value string) Rule {
	return Rule{
		Check: func() bool {
			u, err := url.ParseRequestURI(strings.TrimSpace(value))
			if err != nil {
				return false
			}
			return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
		},
		Error: ValidationError{
			Field:          field,
			Message:        "Please enter a valid URL",
			TranslationKey: "validation.url",
		},
	}
}
