package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/partbase-backend/internal/clients/pdftext"
	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/types"
	"github.com/yungbote/partbase-backend/internal/utils"
)

// DatasheetCacheService implements fetch-once/extract-once/serve-many.
// A nil entry with a nil error means "nothing usable right now": either
// another caller owns the in-flight extraction (re-query on the next
// ingestion pass) or a previous extraction failed and the entry is
// waiting for the expiry sweep.
type DatasheetCacheService interface {
	GetOrExtract(ctx context.Context, datasheetURL, mpnHint string) (*types.DatasheetCacheEntry, error)
	SweepExpired(ctx context.Context) (int64, error)
	StartSweeper(ctx context.Context)
}

type datasheetCacheService struct {
	db        *gorm.DB
	log       *logger.Logger
	cacheRepo repos.DatasheetCacheRepo
	pdf       pdftext.Client
	extractor PinoutExtractor

	entryTTL        time.Duration
	sweepInterval   time.Duration
	maxRawTextBytes int
	inputCostPer1K  float64
	outputCostPer1K float64
}

func NewDatasheetCacheService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cacheRepo repos.DatasheetCacheRepo,
	pdf pdftext.Client,
	extractor PinoutExtractor,
) DatasheetCacheService {
	return &datasheetCacheService{
		db:              db,
		log:             baseLog.With("service", "DatasheetCacheService"),
		cacheRepo:       cacheRepo,
		pdf:             pdf,
		extractor:       extractor,
		entryTTL:        utils.GetEnvAsDuration("CACHE_ENTRY_TTL", 90*24*time.Hour, baseLog),
		sweepInterval:   utils.GetEnvAsDuration("CACHE_SWEEP_INTERVAL", 12*time.Hour, baseLog),
		maxRawTextBytes: utils.GetEnvAsInt("CACHE_RAW_TEXT_MAX_BYTES", 100000, baseLog),
		inputCostPer1K:  utils.GetEnvAsFloat("OPENAI_INPUT_COST_PER_1K", 0, baseLog),
		outputCostPer1K: utils.GetEnvAsFloat("OPENAI_OUTPUT_COST_PER_1K", 0, baseLog),
	}
}

// Tracking parameters stripped before a URL becomes a cache key. The
// normalized form is also the uniqueness constraint, so this function
// must stay deterministic and idempotent.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign"}

func NormalizeDatasheetURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := parsed.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func (s *datasheetCacheService) GetOrExtract(ctx context.Context, datasheetURL, mpnHint string) (*types.DatasheetCacheEntry, error) {
	normalized := NormalizeDatasheetURL(datasheetURL)

	existing, err := s.cacheRepo.GetByNormalizedURL(ctx, nil, normalized)
	if err == nil {
		switch existing.Status {
		case types.CacheStatusCompleted:
			s.log.Debug("Datasheet cache hit", "normalized_url", normalized)
			return existing, nil
		case types.CacheStatusFailed:
			s.log.Debug("Datasheet cache entry failed earlier, serving no-pinout until expiry", "normalized_url", normalized)
			return nil, nil
		default:
			// pending/processing: another caller owns the extraction.
			s.log.Debug("Datasheet extraction in flight elsewhere", "normalized_url", normalized)
			return nil, nil
		}
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	entry := &types.DatasheetCacheEntry{
		NormalizedURL: normalized,
		SourceURL:     datasheetURL,
		ExpiresAt:     time.Now().Add(s.entryTTL),
	}
	created, err := s.cacheRepo.InsertProcessing(ctx, nil, entry)
	if err != nil {
		return nil, fmt.Errorf("cache insert: %w", err)
	}
	if !created {
		// Lost the insert race: the winner extracts, we return nothing
		// now and the caller re-queries on a later pass.
		return nil, nil
	}

	return s.runExtraction(ctx, entry, mpnHint)
}

func (s *datasheetCacheService) runExtraction(ctx context.Context, entry *types.DatasheetCacheEntry, mpnHint string) (*types.DatasheetCacheEntry, error) {
	pdfResult, err := s.pdf.ExtractFromURL(ctx, entry.SourceURL)
	if err != nil {
		s.markFailed(ctx, entry, err)
		return nil, fmt.Errorf("datasheet text extraction: %w", err)
	}

	extraction, usage, err := s.extractor.ExtractPackages(ctx, pdfResult.Text, mpnHint)
	if err != nil {
		s.markFailed(ctx, entry, err)
		return nil, err
	}

	entry.Status = types.CacheStatusCompleted
	entry.RawText = truncate(sanitizeText(pdfResult.Text), s.maxRawTextBytes)
	entry.PageCount = pdfResult.PageCount
	entry.TextLength = len(pdfResult.Text)
	entry.Packages = datatypes.NewJSONType(extraction.Packages)
	entry.Specs = datatypes.JSONMap(extraction.Specs)
	entry.Model = s.extractor.Model()
	entry.PromptTokens = usage.InputTokens
	entry.CompletionTokens = usage.OutputTokens
	entry.CostUSD = float64(usage.InputTokens)/1000*s.inputCostPer1K +
		float64(usage.OutputTokens)/1000*s.outputCostPer1K

	if storeErr := s.cacheRepo.Update(ctx, nil, entry); storeErr != nil {
		// The completed write can be rejected for its own payload, so
		// drop the payload before recording the failure; the row must
		// not stay in processing.
		entry.RawText = ""
		entry.Packages = datatypes.NewJSONType(map[string]types.PackagePinout{})
		entry.Specs = nil
		s.markFailed(ctx, entry, storeErr)
		return nil, fmt.Errorf("cache store: %w", storeErr)
	}

	s.log.Info("Datasheet extracted",
		"normalized_url", entry.NormalizedURL,
		"pages", entry.PageCount,
		"packages", len(extraction.Packages),
	)
	return entry, nil
}

// markFailed moves the row out of processing no matter what, so a
// failure never wedges the URL.
func (s *datasheetCacheService) markFailed(ctx context.Context, entry *types.DatasheetCacheEntry, cause error) {
	entry.Status = types.CacheStatusFailed
	entry.Error = truncate(cause.Error(), 2000)
	if err := s.cacheRepo.Update(ctx, nil, entry); err != nil {
		s.log.Error("Failed to mark cache entry failed", "normalized_url", entry.NormalizedURL, "error", err)
	}
}

func (s *datasheetCacheService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.cacheRepo.DeleteExpired(ctx, nil, time.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("Swept expired datasheet cache entries", "deleted", deleted)
	}
	return deleted, nil
}

// StartSweeper runs the expiry sweep on a fixed interval until ctx is
// cancelled.
func (s *datasheetCacheService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx); err != nil {
					s.log.Error("Cache sweep failed", "error", err)
				}
			}
		}
	}()
}

// sanitizeText strips NUL bytes and invalid UTF-8. Postgres rejects
// both in text columns, and PDF text extraction produces plenty of each.
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ToValidUTF8(s, "")
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
