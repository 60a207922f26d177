// Package verification generates one-time call codes, normalizes phone numbers and
// gates concurrent attempts per phone.
package verification

import (
	"crypto/rand"
	"errors"
	"strings"
)

// CodeDigits is the length of a spoken verification code. Four digits keeps
// dictation over a phone line easy; the attempt gate and the single retry in
// the call script bound guessing.
const CodeDigits = 4

// DefaultRegion is the country calling code applied when a request has none.
const DefaultRegion = "1"

// ErrInvalidPhoneFormat is returned when a phone number has no digits.
var ErrInvalidPhoneFormat = errors.New("invalid phone number format")

// GenerateCode returns CodeDigits uniformly random decimal digits, leading zeros kept.
func GenerateCode() (string, error) {
	out := make([]byte, 0, CodeDigits)
	buf := make([]byte, CodeDigits*2)
	for len(out) < CodeDigits {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256.
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == CodeDigits {
				break
			}
		}
	}
	return string(out), nil
}

// DialableNumber strips non-digits from raw and prefixes "+" and region.
// No further E.164 validation is done.
func DialableNumber(raw, region string) (string, error) {
	digits := digitsOnly(raw)
	if digits == "" {
		return "", ErrInvalidPhoneFormat
	}
	region = digitsOnly(region)
	if region == "" {
		region = DefaultRegion
	}
	return "+" + region + digits, nil
}

// MaskPhone keeps the last four digits for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
