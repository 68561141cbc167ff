// Package phone normalizes Kenyan mobile numbers for M-PESA charges.
package phone

import (
	"strings"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
)

const countryCode = "254"

// Number is a normalized Kenyan mobile number.
type Number struct {
	// NSN is the national significant number: 9 digits for the 07 class,
	// 10 digits for the 01 class.
	NSN string
	// Gateway is the wire format sent to the charge API, "254" + NSN.
	Gateway string
	// Display is the storefront form: "0" + NSN for the 07 class, the bare
	// NSN for the 01 class.
	Display string
}

// Normalize validates raw input and derives the gateway and display formats.
//
// Accepted inputs: "254…" / "+254…" prefixed, trunk-zero "07…"/"01…", or a
// bare NSN; any spacing, dashes or other non-digits are ignored. The NSN is
// zero-padded to its class length before the leading digit is validated, so
// an input whose padded NSN no longer starts with 7 or 1 is rejected.
func Normalize(raw string) (Number, error) {
	cleaned := digitsOnly(raw)
	if len(cleaned) < 9 {
		return Number{}, domain.ErrInvalidPhone
	}

	nsn := extractNSN(cleaned)

	// extractNSN keeps at least 9 digits after the length gate, so only the
	// class-1 pad can actually fire; the class-7 arm spells out the same
	// rule at its class length.
	switch {
	case nsn[0] == '1' && len(nsn) < 10:
		nsn = zeroPad(nsn, 10)
	case nsn[0] == '7' && len(nsn) < 9:
		nsn = zeroPad(nsn, 9)
	}

	if nsn[0] != '7' && nsn[0] != '1' {
		return Number{}, domain.ErrInvalidPhone
	}

	display := nsn
	if nsn[0] == '7' {
		display = "0" + nsn
	}
	return Number{NSN: nsn, Gateway: countryCode + nsn, Display: display}, nil
}

// extractNSN strips the country code or trunk zero from a cleaned digit
// string, falling back to the trailing digits for unrecognized shapes.
func extractNSN(cleaned string) string {
	switch {
	case strings.HasPrefix(cleaned, countryCode) && len(cleaned) >= 12:
		if len(cleaned) == 12 || len(cleaned) == 13 {
			return cleaned[3:]
		}
		// Overlong input: keep the last 10 digits for the 01 class,
		// the last 9 otherwise.
		if cleaned[len(cleaned)-10] == '1' {
			return cleaned[len(cleaned)-10:]
		}
		return cleaned[len(cleaned)-9:]
	case strings.HasPrefix(cleaned, "0") && len(cleaned) >= 10:
		return cleaned[1:]
	default:
		return cleaned[len(cleaned)-9:]
	}
}

// FormatDisplay renders a number with storefront spacing: 4-3-3 for ten
// digits, 4-4-3 for eleven, and a trunk-zero conversion for "254…" twelves.
// Anything else passes through untouched.
func FormatDisplay(phone string) string {
	cleaned := digitsOnly(phone)
	switch {
	case len(cleaned) == 10:
		return cleaned[:4] + " " + cleaned[4:7] + " " + cleaned[7:]
	case len(cleaned) == 11:
		return cleaned[:4] + " " + cleaned[4:8] + " " + cleaned[8:]
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, countryCode):
		return "0" + cleaned[3:4] + " " + cleaned[4:7] + " " + cleaned[7:]
	default:
		return phone
	}
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

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
