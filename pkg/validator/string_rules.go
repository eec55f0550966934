package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("%s is required", humanize(field)),
			TranslationKey: "validation.required",
		},
	}
}

func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("%s must be at least %d characters long", humanize(field), min),
			TranslationKey: "validation.min_length",
		},
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("%s must be at most %d characters long", humanize(field), max),
			TranslationKey: "validation.max_length",
		},
	}
}

// MaxBytes limits the encoded size of value, for inputs bounded in bytes
// rather than characters.
func MaxBytes(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("%s must be at most %d bytes long", humanize(field), max),
			TranslationKey: "validation.max_bytes",
		},
	}
}

// Equal checks that a confirmation field matches its original.
func Equal(field, value, other, message string) Rule {
	return Rule{
		Check: func() bool { return value == other },
		Error: ValidationError{
			Field:          field,
			Message:        message,
			TranslationKey: "validation.mismatch",
		},
	}
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
