package services

import (
	"testing"

	"github.com/yungbote/partbase-backend/internal/types"
)

func variant(suffixHints, aliases []string, pinCount int) types.PackagePinout {
	pins := make([]types.ExtractedPin, 0, pinCount)
	for i := 1; i <= pinCount; i++ {
		pins = append(pins, types.ExtractedPin{Number: i, Name: "P", Function: types.PinFunctionOther})
	}
	return types.PackagePinout{Pins: pins, Aliases: aliases, SuffixHints: suffixHints}
}

func TestMatchPinoutToComponent(t *testing.T) {
	multi := map[string]types.PackagePinout{
		"SOT-89":  variant([]string{"H"}, nil, 3),
		"SOT-223": variant([]string{"S"}, []string{"SOT223-3"}, 4),
		"TO-220":  variant([]string{"T"}, nil, 3),
	}

	t.Run("empty package map matches nothing", func(t *testing.T) {
		if got := MatchPinoutToComponent(nil, "SOIC-8", "H"); got != nil {
			t.Fatalf("got %+v, want nil", got)
		}
	})

	t.Run("suffix hint wins", func(t *testing.T) {
		got := MatchPinoutToComponent(multi, "", "H")
		if got == nil || got.Label != "SOT-89" || got.Strategy != MatchStrategySuffix {
			t.Fatalf("got %+v, want SOT-89 via suffix", got)
		}
		if got.Fallback {
			t.Fatal("suffix match must not be flagged as fallback")
		}
	})

	t.Run("suffix hint is case-insensitive", func(t *testing.T) {
		got := MatchPinoutToComponent(multi, "", "h")
		if got == nil || got.Label != "SOT-89" {
			t.Fatalf("got %+v, want SOT-89", got)
		}
	})

	t.Run("suffix outranks direct package match", func(t *testing.T) {
		// Package says TO-220 but the suffix selects the SOT-89 variant.
		got := MatchPinoutToComponent(multi, "TO-220", "H")
		if got == nil || got.Label != "SOT-89" || got.Strategy != MatchStrategySuffix {
			t.Fatalf("got %+v, want SOT-89 via suffix", got)
		}
	})

	t.Run("direct key match", func(t *testing.T) {
		got := MatchPinoutToComponent(multi, "TO-220", "")
		if got == nil || got.Label != "TO-220" || got.Strategy != MatchStrategyDirect {
			t.Fatalf("got %+v, want TO-220 via direct", got)
		}
	})

	t.Run("alias match", func(t *testing.T) {
		got := MatchPinoutToComponent(multi, "SOT223-3", "")
		if got == nil || got.Label != "SOT-223" || got.Strategy != MatchStrategyAlias {
			t.Fatalf("got %+v, want SOT-223 via alias", got)
		}
	})

	t.Run("fuzzy match ignores hyphens and spaces", func(t *testing.T) {
		packages := map[string]types.PackagePinout{
			"SOIC 8": variant(nil, nil, 8),
		}
		got := MatchPinoutToComponent(packages, "SOIC-8", "")
		if got == nil || got.Label != "SOIC 8" || got.Strategy != MatchStrategyFuzzy {
			t.Fatalf("got %+v, want SOIC 8 via fuzzy", got)
		}
	})

	t.Run("fallback is explicit and deterministic", func(t *testing.T) {
		got := MatchPinoutToComponent(multi, "DFN-10", "Z")
		if got == nil || got.Strategy != MatchStrategyFallback || !got.Fallback {
			t.Fatalf("got %+v, want flagged fallback", got)
		}
		// First label in sorted order.
		if got.Label != "SOT-223" {
			t.Fatalf("fallback label = %q, want SOT-223", got.Label)
		}
	})

	t.Run("single package with no hints still falls back", func(t *testing.T) {
		packages := map[string]types.PackagePinout{
			"MSOP-10": variant(nil, nil, 10),
		}
		got := MatchPinoutToComponent(packages, "", "")
		if got == nil || got.Label != "MSOP-10" || !got.Fallback {
			t.Fatalf("got %+v, want MSOP-10 fallback", got)
		}
	})
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SOIC-8", "SOIC8"},
		{"soic 8", "SOIC8"},
		{"SOT-223-3", "SOT2233"},
		{"TO220", "TO220"},
	}
	for _, tt := range tests {
		if got := matchKey(tt.in); got != tt.want {
			t.Errorf("matchKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
