package services

import (
	"sort"
	"strings"

	"github.com/yungbote/partbase-backend/internal/types"
)

// Matching strategies, in priority order. Fallback is the degrade-
// rather-than-fail path: it returns some variant instead of nothing,
// and callers must treat it as low confidence.
const (
	MatchStrategySuffix   = "suffix"
	MatchStrategyDirect   = "direct"
	MatchStrategyAlias    = "alias"
	MatchStrategyFuzzy    = "fuzzy"
	MatchStrategyFallback = "fallback"
)

// PackagePinoutMatch routes one extracted package variant to a concrete
// component. Fallback is an explicit signal, not just a log line, so
// callers and tests can tell a real match from a guess.
type PackagePinoutMatch struct {
	Label    string
	Pinout   types.PackagePinout
	Strategy string
	Fallback bool
}

// MatchPinoutToComponent picks the package variant for one component
// out of a multi-package extraction. Strategies run in strict priority
// order and the first hit wins:
//
//  1. suffix: mpnSuffix against each variant's suffix_hints (case-insensitive)
//  2. direct: packageNormalized as an exact map key
//  3. alias: packageNormalized against each variant's aliases, key-normalized
//  4. fuzzy: key-normalized comparison against every map key
//  5. fallback: first variant by sorted label, flagged
//
// An empty package map returns nil unconditionally.
func MatchPinoutToComponent(packages map[string]types.PackagePinout, packageNormalized, mpnSuffix string) *PackagePinoutMatch {
	if len(packages) == 0 {
		return nil
	}

	labels := make([]string, 0, len(packages))
	for label := range packages {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	if mpnSuffix != "" {
		for _, label := range labels {
			for _, hint := range packages[label].SuffixHints {
				if strings.EqualFold(strings.TrimSpace(hint), mpnSuffix) {
					return &PackagePinoutMatch{Label: label, Pinout: packages[label], Strategy: MatchStrategySuffix}
				}
			}
		}
	}

	if packageNormalized != "" {
		if variant, ok := packages[packageNormalized]; ok {
			return &PackagePinoutMatch{Label: packageNormalized, Pinout: variant, Strategy: MatchStrategyDirect}
		}

		searchKey := matchKey(packageNormalized)
		for _, label := range labels {
			for _, alias := range packages[label].Aliases {
				if matchKey(alias) == searchKey {
					return &PackagePinoutMatch{Label: label, Pinout: packages[label], Strategy: MatchStrategyAlias}
				}
			}
		}
		for _, label := range labels {
			if matchKey(label) == searchKey {
				return &PackagePinoutMatch{Label: label, Pinout: packages[label], Strategy: MatchStrategyFuzzy}
			}
		}
	}

	first := labels[0]
	return &PackagePinoutMatch{Label: first, Pinout: packages[first], Strategy: MatchStrategyFallback, Fallback: true}
}

// matchKey normalizes both sides of a package-name comparison:
// uppercase, hyphens and spaces stripped.
func matchKey(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
