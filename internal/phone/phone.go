// Package phone normalizes Bolivian customer phone numbers.
//
// Normalization is forgiving and never fails; strict validation is a
// separate check so callers can distinguish "best effort canonical
// form" from "acceptable for submission".
package phone

import (
	"fmt"
	"strings"
)

const (
	// CountryCode is Bolivia's international dialing prefix.
	CountryCode = "591"

	// mobileDigits is the length of a national mobile number.
	mobileDigits = 8
)

// mobilePrefixes are the first digits of Bolivian mobile numbers.
var mobilePrefixes = []string{"6", "7"}

// Normalize strips non-digit characters and prepends the country code
// to bare 8-digit mobile numbers. Input that fits neither shape is
// returned as bare digits; validity is judged separately by Validate.
func Normalize(raw string) string {
	digits := onlyDigits(raw)

	if strings.HasPrefix(digits, CountryCode) {
		return digits
	}

	if len(digits) == mobileDigits && hasMobilePrefix(digits) {
		return CountryCode + digits
	}

	return digits
}

// Validate applies the strict submission format: country code followed
// by an 8-digit mobile number. The returned error message is meant to
// be shown to the agent as-is.
func Validate(raw string) error {
	digits := Normalize(raw)

	if !strings.HasPrefix(digits, CountryCode) {
		return fmt.Errorf("phone must start with country code %s", CountryCode)
	}

	national := digits[len(CountryCode):]
	if len(national) != mobileDigits {
		return fmt.Errorf("phone must have %d digits after the %s country code", mobileDigits, CountryCode)
	}

	if !hasMobilePrefix(national) {
		return fmt.Errorf("phone must be a mobile number starting with %s", strings.Join(mobilePrefixes, " or "))
	}

	return nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasMobilePrefix(digits string) bool {
	for _, p := range mobilePrefixes {
		if strings.HasPrefix(digits, p) {
			return true
		}
	}
	return false
}
