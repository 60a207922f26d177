package verification

import (
	"errors"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[byte]bool)
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != CodeDigits {
			t.Fatalf("code %q has length %d, want %d", code, len(code), CodeDigits)
		}
		for j := 0; j < len(code); j++ {
			if code[j] < '0' || code[j] > '9' {
				t.Fatalf("code %q has non-digit at %d", code, j)
			}
			seen[code[j]] = true
		}
	}
	// 2000 digits drawn; every digit should appear.
	if len(seen) != 10 {
		t.Errorf("saw %d distinct digits, want 10", len(seen))
	}
}

func TestDialableNumber(t *testing.T) {
	testCases := []struct {
		name   string
		raw    string
		region string
		want   string
	}{
		{"digits only", "5551234567", "1", "+15551234567"},
		{"formatted", "(555) 123-4567", "1", "+15551234567"},
		{"default region", "555.123.4567", "", "+15551234567"},
		{"other region", "20 7946 0958", "44", "+442079460958"},
		{"region with plus", "612345678", "+34", "+34612345678"},
		{"leading zeros kept", "0034", "1", "+10034"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DialableNumber(tc.raw, tc.region)
			if err != nil {
				t.Fatalf("DialableNumber: %v", err)
			}
			if got != tc.want {
				t.Errorf("DialableNumber(%q, %q) = %q, want %q", tc.raw, tc.region, got, tc.want)
			}
		})
	}
}

func TestDialableNumber_NoDigits(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc-def", "+()"} {
		if _, err := DialableNumber(raw, "1"); !errors.Is(err, ErrInvalidPhoneFormat) {
			t.Errorf("DialableNumber(%q) err = %v, want ErrInvalidPhoneFormat", raw, err)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+15551234567"); got != "********4567" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := MaskPhone("123"); got != "****" {
		t.Errorf("MaskPhone short = %q", got)
	}
}
