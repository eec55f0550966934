package sanitizer

import "strings"

// NormalizeEmail is the canonical form used for storage, lookup and uniqueness:
// surrounding whitespace removed, lower-cased, trailing dot on the domain dropped.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return local + "@" + strings.TrimSuffix(domain, ".")
}

// NormalizeURL trims whitespace and prefixes bare hosts with https://.
// Empty input stays empty.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
