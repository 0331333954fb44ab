package normalization

import (
	"regexp"
	"strings"
)

// The two patterns below isolate a 1-2 letter package-variant code from
// an MPN, e.g. "AZ1117CH-3.3" -> "H" (the SOT-89 variant of the AZ1117C).
// Both are ad hoc: on unfamiliar MPN formats they can silently return a
// wrong suffix, so callers must treat the result as a low-confidence
// hint, never authoritative.
var (
	// Variant letter immediately before a trailing option/voltage suffix:
	// AZ1117CH-3.3 -> H, AP2112K-3.3 -> K.
	mpnSuffixBeforeDash = regexp.MustCompile(`^[A-Z]{1,4}[0-9]{3,5}[A-Z]?([A-Z])-`)
	// Trailing variant letters with no option suffix: LM317T -> T.
	mpnSuffixTrailing = regexp.MustCompile(`^[A-Z]{1,4}[0-9]{3,5}([A-Z]{1,2})$`)
)

// ExtractMPNSuffix returns the package-variant code embedded in an MPN,
// if either heuristic pattern matches.
func ExtractMPNSuffix(mpn string) (string, bool) {
	m := strings.ToUpper(strings.TrimSpace(mpn))
	if m == "" {
		return "", false
	}
	if sub := mpnSuffixBeforeDash.FindStringSubmatch(m); sub != nil {
		return sub[1], true
	}
	if sub := mpnSuffixTrailing.FindStringSubmatch(m); sub != nil {
		return sub[1], true
	}
	return "", false
}
