package profile

import (
	"net/netip"
	"regexp"
	"strings"
)

// PIIKind names a category of personally identifiable information.
type PIIKind uint8

const (
	PIINone PIIKind = iota
	PIISSN
	PIICreditCard
	PIIEmail
	PIIPhone
	PIIIPAddress
	PIIDateOfBirth
	PIIPostalCode

	piiKindCount
)

var piiKindNames = [...]string{
	PIINone:        "none",
	PIISSN:         "SSN",
	PIICreditCard:  "credit card",
	PIIEmail:       "email",
	PIIPhone:       "phone number",
	PIIIPAddress:   "IP address",
	PIIDateOfBirth: "date of birth",
	PIIPostalCode:  "postal code",
}

func (k PIIKind) String() string {
	if int(k) < len(piiKindNames) {
		return piiKindNames[k]
	}

	return "unknown"
}

// Severity returns the issue severity used when a column is flagged as k.
func (k PIIKind) Severity() Severity {
	switch k {
	case PIISSN, PIICreditCard:
		return SeverityError
	case PIIPostalCode:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^(?:\+?\d{1,3}[\s.\-]?)?(?:\(\d{3}\)\s?|\d{3}[\s.\-])\d{3}[\s.\-]\d{4}$`)
	ssnPattern   = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
)

// Card numbers are 13 to 19 digits.
const (
	minCardDigits = 13
	maxCardDigits = 19
)

// DetectPII matches a trimmed value against the structural PII shapes, most
// sensitive first. Date of birth and postal code are only inferred from
// column names because their shapes are too common in ordinary data.
func DetectPII(trimmed string) PIIKind {
	switch {
	case ssnPattern.MatchString(trimmed):
		return PIISSN
	case isCardNumber(trimmed):
		return PIICreditCard
	case emailPattern.MatchString(trimmed):
		return PIIEmail
	case phonePattern.MatchString(trimmed):
		return PIIPhone
	case isIPv4(trimmed):
		return PIIIPAddress
	default:
		return PIINone
	}
}

// isCardNumber accepts digits with optional space or dash separators whose
// digit count is plausible and whose checksum passes Luhn.
func isCardNumber(s string) bool {
	if len(s) < minCardDigits {
		return false
	}

	digits := make([]byte, 0, maxCardDigits)

	for i := range len(s) {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			if len(digits) == maxCardDigits {
				return false
			}

			digits = append(digits, c-'0')
		case c == ' ' || c == '-':
		default:
			return false
		}
	}

	return len(digits) >= minCardDigits && luhn(digits)
}

func luhn(digits []byte) bool {
	sum := 0
	double := false

	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i])
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}

		sum += d
		double = !double
	}

	return sum%10 == 0
}

func isIPv4(s string) bool {
	if strings.Count(s, ".") != 3 {
		return false
	}

	addr, err := netip.ParseAddr(s)

	return err == nil && addr.Is4()
}

// nameHints maps column-name fragments to the PII kind they suggest. Order
// matters: "ip_address" must be seen before the generic "address".
var nameHints = []struct {
	kind      PIIKind
	fragments []string
}{
	{PIIEmail, []string{"email", "e_mail", "e-mail"}},
	{PIIPhone, []string{"phone", "mobile", "cell", "fax"}},
	{PIISSN, []string{"ssn", "social_security", "socialsecurity", "social-security"}},
	{PIIIPAddress, []string{"ip_address", "ipaddress", "ip_addr", "client_ip", "user_ip", "remote_ip", "source_ip"}},
	{PIIPostalCode, []string{"address", "street", "zip", "postal", "postcode"}},
	{PIIDateOfBirth, []string{"dob", "birth"}},
}

// PIIFromColumnName returns the PII kind a column name suggests, if any.
func PIIFromColumnName(name string) PIIKind {
	lower := strings.ToLower(name)
	if lower == "ip" {
		return PIIIPAddress
	}

	for _, hint := range nameHints {
		for _, frag := range hint.fragments {
			if strings.Contains(lower, frag) {
				return hint.kind
			}
		}
	}

	return PIINone
}
