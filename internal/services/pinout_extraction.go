package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/partbase-backend/internal/clients/openai"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/types"
	"github.com/yungbote/partbase-backend/internal/utils"
)

// PinoutExtractor is the LLM multi-package extraction capability. An
// unparsable or empty model answer yields an empty package map with a
// nil error ("no pinout available"), never a hard failure; only
// transport-level problems surface as errors.
type PinoutExtractor interface {
	ExtractPackages(ctx context.Context, text, mpnHint string) (*types.DatasheetExtraction, openai.Usage, error)
	Model() string
}

type pinoutExtractionService struct {
	db           *gorm.DB
	log          *logger.Logger
	ai           openai.Client
	callLogRepo  repos.LLMCallLogRepo
	prompts      *PromptCache
	maxTextChars int
}

func NewPinoutExtractionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	ai openai.Client,
	callLogRepo repos.LLMCallLogRepo,
	prompts *PromptCache,
) PinoutExtractor {
	maxTextChars := utils.GetEnvAsInt("EXTRACT_TEXT_MAX_CHARS", 60000, baseLog)
	return &pinoutExtractionService{
		db:           db,
		log:          baseLog.With("service", "PinoutExtractionService"),
		ai:           ai,
		callLogRepo:  callLogRepo,
		prompts:      prompts,
		maxTextChars: maxTextChars,
	}
}

func (s *pinoutExtractionService) Model() string { return s.ai.Model() }

const defaultExtractionPrompt = `You are an electronics datasheet analyst. Extract every package variant
described by the datasheet. For each package report the full pin list
(pin number, pin name, pin function), any alternative package names the
datasheet uses for it, and the MPN suffix codes that select it.
Pin functions must be one of: %s.
Also extract the flat electrical spec map with numeric values where
possible, using keys such as vin_min, vin_max, vout_min, vout_max,
iout_max, switching_freq_min, switching_freq_max, efficiency.`

func (s *pinoutExtractionService) systemPrompt() string {
	prompt, err := s.prompts.Get("pinout_extraction_system", func() (string, error) {
		if path := strings.TrimSpace(os.Getenv("PINOUT_PROMPT_FILE")); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read prompt file: %w", err)
			}
			return string(raw), nil
		}
		return fmt.Sprintf(defaultExtractionPrompt, strings.Join(types.PinFunctions, ", ")), nil
	})
	if err != nil {
		s.log.Warn("Prompt lookup failed, using built-in default", "error", err)
		return fmt.Sprintf(defaultExtractionPrompt, strings.Join(types.PinFunctions, ", "))
	}
	return prompt
}

func extractionSchema() map[string]any {
	pinSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"number":      map[string]any{"type": "integer"},
			"name":        map[string]any{"type": "string"},
			"function":    map[string]any{"type": "string", "enum": types.PinFunctions},
			"description": map[string]any{"type": "string"},
		},
		"required":             []string{"number", "name", "function"},
		"additionalProperties": false,
	}
	packageSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pins":         map[string]any{"type": "array", "items": pinSchema},
			"aliases":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suffix_hints": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []string{"pins"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"packages": map[string]any{
				"type":                 "object",
				"additionalProperties": packageSchema,
			},
			"specs": map[string]any{
				"type":                 "object",
				"additionalProperties": true,
			},
		},
		"required":             []string{"packages"},
		"additionalProperties": false,
	}
}

func (s *pinoutExtractionService) ExtractPackages(ctx context.Context, text, mpnHint string) (*types.DatasheetExtraction, openai.Usage, error) {
	text = truncate(text, s.maxTextChars)

	user := text
	if mpnHint != "" {
		user = "Part number of interest: " + mpnHint + "\n\nDatasheet text:\n" + text
	}

	raw, usage, err := s.ai.GenerateJSON(ctx, s.systemPrompt(), user, "datasheet_extraction", extractionSchema())
	s.logCall(ctx, usage, err)
	if err != nil {
		if errors.Is(err, openai.ErrMalformedOutput) {
			// Unusable model output means "no pinout available", not a
			// failed extraction run.
			s.log.Warn("Model output unusable, treating as empty extraction", "mpn_hint", mpnHint, "error", err)
			return &types.DatasheetExtraction{Packages: map[string]types.PackagePinout{}}, usage, nil
		}
		return nil, usage, fmt.Errorf("llm extraction: %w", err)
	}

	extraction := parseExtraction(raw)
	if len(extraction.Packages) == 0 {
		s.log.Warn("Extraction returned no usable packages", "mpn_hint", mpnHint)
	}
	return extraction, usage, nil
}

// parseExtraction converts the model's JSON into the typed extraction,
// dropping anything malformed. A shape it cannot read at all becomes an
// empty package map, which callers treat as "no pinout available".
func parseExtraction(raw map[string]any) *types.DatasheetExtraction {
	extraction := &types.DatasheetExtraction{Packages: map[string]types.PackagePinout{}}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return extraction
	}
	var decoded types.DatasheetExtraction
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return extraction
	}

	valid := make(map[string]bool, len(types.PinFunctions))
	for _, fn := range types.PinFunctions {
		valid[fn] = true
	}

	for label, variant := range decoded.Packages {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		pins := make([]types.ExtractedPin, 0, len(variant.Pins))
		for _, pin := range variant.Pins {
			if pin.Number <= 0 {
				continue
			}
			fn := strings.ToUpper(strings.TrimSpace(pin.Function))
			if !valid[fn] {
				fn = types.PinFunctionOther
			}
			pin.Function = fn
			pins = append(pins, pin)
		}
		if len(pins) == 0 {
			continue
		}
		variant.Pins = pins
		extraction.Packages[label] = variant
	}
	extraction.Specs = decoded.Specs
	return extraction
}

func (s *pinoutExtractionService) logCall(ctx context.Context, usage openai.Usage, callErr error) {
	if s.callLogRepo == nil {
		return
	}
	entry := &types.LLMCallLog{
		ID:       uuid.New(),
		CallType: "datasheet_extraction",
		Model:    s.ai.Model(),
		Success:  callErr == nil,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if raw, err := json.Marshal(usage); err == nil {
		entry.Usage = datatypes.JSON(raw)
	}
	if err := s.callLogRepo.Create(ctx, nil, entry); err != nil {
		s.log.Warn("Failed to write LLM call log", "error", err)
	}
}
