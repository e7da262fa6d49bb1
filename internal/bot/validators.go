package bot

import (
	"strings"
	"unicode"
)

// NormalizePhoneNumber removes whitespace and a leading country prefix.
func NormalizePhoneNumber(phone, countryPrefix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)

	if countryPrefix != "" {
		cleaned = strings.TrimPrefix(cleaned, countryPrefix)
	}
	return cleaned
}

// IsValidPhoneNumber accepts exactly 10 ASCII digits.
func IsValidPhoneNumber(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}

func (e *Engine) validPhone(phone *string) bool {
	if phone == nil {
		return false
	}
	return IsValidPhoneNumber(NormalizePhoneNumber(*phone, e.variant.CountryPrefix))
}
