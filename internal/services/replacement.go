package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/types"
)

const (
	SeverityIncompatible = "incompatible"
	SeverityWarning      = "warning"
)

// Pin compatibility dominates the combined score: a pinout mismatch
// usually means a board respin, a spec shortfall is sometimes tolerable.
const (
	pinoutWeight = 0.6
	specsWeight  = 0.4
)

// PinDifference is one original pin whose candidate counterpart carries
// a different function.
type PinDifference struct {
	PinNumber         int    `json:"pin_number"`
	PinName           string `json:"pin_name"`
	OriginalFunction  string `json:"original_function"`
	CandidateFunction string `json:"candidate_function"`
	Severity          string `json:"severity"`
}

type PinoutMatchResult struct {
	Matched     int             `json:"matched"`
	Total       int             `json:"total"`
	Score       float64         `json:"score"`
	Differences []PinDifference `json:"differences"`
}

type SpecsMatchResult struct {
	Compatible   []string `json:"compatible"`
	Incompatible []string `json:"incompatible"`
	Warnings     []string `json:"warnings"`
	Score        float64  `json:"score"`
}

// ReplacementResult pairs a candidate with its pin and spec diffs and
// the combined ranking score. Computed per query, never persisted.
type ReplacementResult struct {
	Component  *types.Component  `json:"component"`
	Pinout     PinoutMatchResult `json:"pinout_match"`
	Specs      SpecsMatchResult  `json:"specs_match"`
	MatchScore float64           `json:"match_score"`
}

type ReplacementService interface {
	FindReplacements(ctx context.Context, componentID uuid.UUID) ([]ReplacementResult, error)
}

type replacementService struct {
	db            *gorm.DB
	log           *logger.Logger
	componentRepo repos.ComponentRepo
	pinoutRepo    repos.PinoutRepo
}

func NewReplacementService(
	db *gorm.DB,
	baseLog *logger.Logger,
	componentRepo repos.ComponentRepo,
	pinoutRepo repos.PinoutRepo,
) ReplacementService {
	return &replacementService{
		db:            db,
		log:           baseLog.With("service", "ReplacementService"),
		componentRepo: componentRepo,
		pinoutRepo:    pinoutRepo,
	}
}

// FindReplacements ranks same-package candidates as drop-in substitutes
// for the reference component. Candidates are ordered by descending
// combined score; ties keep the stable candidate-pool order.
func (s *replacementService) FindReplacements(ctx context.Context, componentID uuid.UUID) ([]ReplacementResult, error) {
	reference, err := s.componentRepo.GetByID(ctx, nil, componentID)
	if err != nil {
		return nil, err
	}
	if reference.PackageNormalized == "" {
		return nil, fmt.Errorf("component %s has no normalized package: %w", reference.MPN, pkgerrors.ErrPreconditionFailed)
	}

	candidates, err := s.componentRepo.ListByPackageNormalized(ctx, nil, reference.PackageNormalized, reference.ID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	referencePins, err := s.pinoutRepo.GetByComponentID(ctx, nil, reference.ID)
	if err != nil {
		return nil, fmt.Errorf("load reference pinout: %w", err)
	}

	results := make([]ReplacementResult, 0, len(candidates))
	for _, candidate := range candidates {
		candidatePins, err := s.pinoutRepo.GetByComponentID(ctx, nil, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("load candidate pinout for %s: %w", candidate.MPN, err)
		}

		pinout := CalculatePinoutMatch(referencePins, candidatePins)
		specs := CalculateSpecsMatch(reference.Specs, candidate.Specs)

		results = append(results, ReplacementResult{
			Component:  candidate,
			Pinout:     pinout,
			Specs:      specs,
			MatchScore: pinoutWeight*pinout.Score + specsWeight*specs.Score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})

	s.log.Debug("FindReplacements",
		"component_id", componentID,
		"package", reference.PackageNormalized,
		"candidates", len(results),
	)
	return results, nil
}

// Critical electrical roles: a function mismatch on one of these pins
// makes the candidate incompatible outright.
var criticalPinFunctions = map[string]bool{
	types.PinFunctionInputVoltage:  true,
	types.PinFunctionOutputVoltage: true,
	types.PinFunctionGround:        true,
	types.PinFunctionSwitchNode:    true,
}

func pinSeverity(originalFn, candidateFn string) string {
	if criticalPinFunctions[originalFn] && originalFn != candidateFn {
		return SeverityIncompatible
	}
	return SeverityWarning
}

// CalculatePinoutMatch diffs candidate pins against the original's pin
// numbering. The score is deliberately asymmetric: the denominator is
// the original's pin count, and candidate pins at numbers the original
// does not use are ignored entirely.
func CalculatePinoutMatch(originalPins, candidatePins []*types.Pinout) PinoutMatchResult {
	result := PinoutMatchResult{
		Total:       len(originalPins),
		Differences: []PinDifference{},
	}
	if len(originalPins) == 0 || len(candidatePins) == 0 {
		return result
	}

	byNumber := make(map[int]*types.Pinout, len(candidatePins))
	for _, pin := range candidatePins {
		byNumber[pin.PinNumber] = pin
	}

	for _, original := range originalPins {
		candidate, ok := byNumber[original.PinNumber]
		if !ok {
			continue
		}
		if candidate.PinFunction == original.PinFunction {
			result.Matched++
			continue
		}
		result.Differences = append(result.Differences, PinDifference{
			PinNumber:         original.PinNumber,
			PinName:           original.PinName,
			OriginalFunction:  original.PinFunction,
			CandidateFunction: candidate.PinFunction,
			Severity:          pinSeverity(original.PinFunction, candidate.PinFunction),
		})
	}

	result.Score = float64(result.Matched) / float64(result.Total)
	return result
}

// CalculateSpecsMatch runs the electrical compatibility checks that can
// be answered from both spec maps. Missing data is neutral (0.5), never
// treated as incompatible.
func CalculateSpecsMatch(originalSpecs, candidateSpecs map[string]any) SpecsMatchResult {
	result := SpecsMatchResult{
		Compatible:   []string{},
		Incompatible: []string{},
		Warnings:     []string{},
		Score:        0.5,
	}
	if len(originalSpecs) == 0 || len(candidateSpecs) == 0 {
		return result
	}

	// Input voltage: the candidate must tolerate at least as much.
	if origVin, ok := specNumber(originalSpecs, "vin_max"); ok {
		if candVin, ok := specNumber(candidateSpecs, "vin_max"); ok {
			if candVin >= origVin {
				result.Compatible = append(result.Compatible,
					fmt.Sprintf("input voltage: candidate handles %gV >= %gV", candVin, origVin))
			} else {
				result.Incompatible = append(result.Incompatible,
					fmt.Sprintf("input voltage: candidate max %gV below original %gV", candVin, origVin))
			}
		}
	}

	// Output current: the candidate must supply at least as much.
	if origIout, ok := specNumber(originalSpecs, "iout_max"); ok {
		if candIout, ok := specNumber(candidateSpecs, "iout_max"); ok {
			if candIout >= origIout {
				result.Compatible = append(result.Compatible,
					fmt.Sprintf("output current: candidate supplies %gA >= %gA", candIout, origIout))
			} else {
				result.Incompatible = append(result.Incompatible,
					fmt.Sprintf("output current: candidate max %gA below original %gA", candIout, origIout))
			}
		}
	}

	// Output voltage range: a narrower adjustable range may still cover
	// the specific design point, so this downgrades to a warning rather
	// than rejecting outright.
	origMin, okOrigMin := specNumber(originalSpecs, "vout_min")
	origMax, okOrigMax := specNumber(originalSpecs, "vout_max")
	candMin, okCandMin := specNumber(candidateSpecs, "vout_min")
	candMax, okCandMax := specNumber(candidateSpecs, "vout_max")
	if okOrigMin && okOrigMax && okCandMin && okCandMax {
		if candMin <= origMin && candMax >= origMax {
			result.Compatible = append(result.Compatible,
				fmt.Sprintf("output voltage: candidate range [%g, %g]V covers [%g, %g]V", candMin, candMax, origMin, origMax))
		} else {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("output voltage: candidate range [%g, %g]V narrower than [%g, %g]V", candMin, candMax, origMin, origMax))
		}
	}

	totalChecks := len(result.Compatible) + len(result.Incompatible) + len(result.Warnings)
	if totalChecks == 0 {
		return result
	}
	result.Score = (float64(len(result.Compatible)) + 0.5*float64(len(result.Warnings))) / float64(totalChecks)
	return result
}

var leadingNumberPattern = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)

// specNumber reads a spec value that may be stored as a JSON number or
// a vendor string like "28V".
func specNumber(specs map[string]any, key string) (float64, bool) {
	v, ok := specs[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if m := leadingNumberPattern.FindString(n); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
