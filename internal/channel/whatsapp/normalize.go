package whatsapp

import (
	"strings"

	"github.com/nimeshka/leadline/internal/channel"
)

// callingCodes maps lead country names to numeric calling codes.
// Unrecognized countries fall back to defaultCallingCode.
var callingCodes = map[string]string{
	"sri lanka":            "94",
	"india":                "91",
	"pakistan":             "92",
	"bangladesh":           "880",
	"maldives":             "960",
	"united states":        "1",
	"canada":               "1",
	"united kingdom":       "44",
	"australia":            "61",
	"new zealand":          "64",
	"singapore":            "65",
	"malaysia":             "60",
	"indonesia":            "62",
	"thailand":             "66",
	"philippines":          "63",
	"united arab emirates": "971",
	"saudi arabia":         "966",
	"qatar":                "974",
	"germany":              "49",
	"france":               "33",
	"italy":                "39",
	"spain":                "34",
	"netherlands":          "31",
	"japan":                "81",
	"south korea":          "82",
	"south africa":         "27",
}

const defaultCallingCode = "94"

// minNormalizedDigits is the shortest plausible international number.
const minNormalizedDigits = 10

// NormalizePhone converts a raw lead phone and country into the
// international digit form the chat network addresses:
// keep digits and a leading plus, drop the plus, then either keep an
// existing calling-code prefix, replace a leading trunk zero with the
// country's code, or prepend the code outright.
func NormalizePhone(raw, country string) (string, error) {
	cleaned := cleanPhone(raw)
	cleaned = strings.TrimPrefix(cleaned, "+")

	if cleaned == "" {
		return "", channel.ErrInvalidRecipient
	}

	code := callingCodeFor(country)

	switch {
	case strings.HasPrefix(cleaned, code):
		// already international
	case strings.HasPrefix(cleaned, "0"):
		cleaned = code + cleaned[1:]
	default:
		cleaned = code + cleaned
	}

	if len(cleaned) < minNormalizedDigits {
		return "", channel.ErrInvalidRecipient
	}

	return cleaned, nil
}

// cleanPhone keeps digits and a leading plus only.
func cleanPhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func callingCodeFor(country string) string {
	if code, ok := callingCodes[strings.ToLower(strings.TrimSpace(country))]; ok {
		return code
	}
	return defaultCallingCode
}
