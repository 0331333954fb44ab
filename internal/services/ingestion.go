package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/partbase-backend/internal/clients/pdftext"
	redisbus "github.com/yungbote/partbase-backend/internal/clients/redis"
	"github.com/yungbote/partbase-backend/internal/clients/vendors"
	"github.com/yungbote/partbase-backend/internal/normalization"
	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/pkg/pointers"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/types"
	"github.com/yungbote/partbase-backend/internal/utils"
)

// Per-job error list cap; everything beyond it is counted but not stored.
const maxJobErrors = 50

type ImportOptions struct {
	SkipExisting   bool
	ExtractPinouts bool
}

type ImportOutcome struct {
	Outcome     string // added | updated | skipped
	PinoutFound bool
	// Warning carries extraction problems for an item whose component
	// record was still persisted.
	Warning string
}

// IngestionService coordinates normalizer, cache engine and persistence
// across a batch of part numbers. Items run strictly sequentially with
// a fixed inter-item pause as rate-limit courtesy to the vendor APIs;
// do not parallelize this loop.
type IngestionService interface {
	StartBatch(ctx context.Context, mpns []string, opts ImportOptions) (*types.ImportJob, error)
	StartFamily(ctx context.Context, baseMPN string, opts ImportOptions) (*types.ImportJob, error)
	RunBatch(ctx context.Context, job *types.ImportJob, mpns []string, opts ImportOptions) error
	ImportOne(ctx context.Context, mpn string, opts ImportOptions) (*ImportOutcome, error)
	CancelJob(ctx context.Context, jobID uuid.UUID) error
}

type ingestionService struct {
	db            *gorm.DB
	log           *logger.Logger
	componentRepo repos.ComponentRepo
	pinoutRepo    repos.PinoutRepo
	jobRepo       repos.ImportJobRepo
	cache         DatasheetCacheService
	pdf           pdftext.Client
	extractor     PinoutExtractor
	sources       []vendors.PartSource
	bus           redisbus.ProgressBus

	itemDelay time.Duration
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	componentRepo repos.ComponentRepo,
	pinoutRepo repos.PinoutRepo,
	jobRepo repos.ImportJobRepo,
	cache DatasheetCacheService,
	pdf pdftext.Client,
	extractor PinoutExtractor,
	sources []vendors.PartSource,
	bus redisbus.ProgressBus,
) IngestionService {
	return &ingestionService{
		db:            db,
		log:           baseLog.With("service", "IngestionService"),
		componentRepo: componentRepo,
		pinoutRepo:    pinoutRepo,
		jobRepo:       jobRepo,
		cache:         cache,
		pdf:           pdf,
		extractor:     extractor,
		sources:       sources,
		bus:           bus,
		itemDelay:     utils.GetEnvAsDuration("IMPORT_ITEM_DELAY", 500*time.Millisecond, baseLog),
	}
}

func (s *ingestionService) StartBatch(ctx context.Context, mpns []string, opts ImportOptions) (*types.ImportJob, error) {
	if len(mpns) == 0 {
		return nil, fmt.Errorf("no part numbers given: %w", pkgerrors.ErrInvalidArgument)
	}

	job, err := s.jobRepo.Create(ctx, nil, &types.ImportJob{
		Kind:   types.ImportKindBatch,
		Status: types.ImportJobQueued,
		Total:  len(mpns),
	})
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	go func() {
		if err := s.RunBatch(context.Background(), job, mpns, opts); err != nil {
			s.log.Error("Batch import ended with error", "job_id", job.ID, "error", err)
		}
	}()
	return job, nil
}

func (s *ingestionService) StartFamily(ctx context.Context, baseMPN string, opts ImportOptions) (*types.ImportJob, error) {
	baseMPN = strings.TrimSpace(baseMPN)
	if baseMPN == "" {
		return nil, fmt.Errorf("no base part number given: %w", pkgerrors.ErrInvalidArgument)
	}

	mpns, err := s.resolveFamily(ctx, baseMPN)
	if err != nil {
		return nil, err
	}

	job, err := s.jobRepo.Create(ctx, nil, &types.ImportJob{
		Kind:   types.ImportKindFamily,
		Status: types.ImportJobQueued,
		Total:  len(mpns),
	})
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	go func() {
		if err := s.RunBatch(context.Background(), job, mpns, opts); err != nil {
			s.log.Error("Family import ended with error", "job_id", job.ID, "error", err)
		}
	}()
	return job, nil
}

// resolveFamily enumerates variants from the first source that can, and
// deduplicates them case-insensitively (vendor feeds routinely list the
// same variant with different casing).
func (s *ingestionService) resolveFamily(ctx context.Context, baseMPN string) ([]string, error) {
	var variants []string
	var lastErr error
	for _, src := range s.sources {
		fs, ok := src.(vendors.FamilySearcher)
		if !ok {
			continue
		}
		found, err := fs.SearchFamily(ctx, baseMPN)
		if err != nil {
			lastErr = err
			continue
		}
		if len(found) > 0 {
			variants = found
			break
		}
	}
	if len(variants) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("family search: %w", lastErr)
		}
		return nil, fmt.Errorf("family %s: %w", baseMPN, pkgerrors.ErrNotFound)
	}

	seen := make(map[string]bool, len(variants)+1)
	deduped := make([]string, 0, len(variants)+1)
	for _, mpn := range append([]string{baseMPN}, variants...) {
		key := strings.ToLower(strings.TrimSpace(mpn))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, strings.TrimSpace(mpn))
	}
	return deduped, nil
}

// RunBatch processes items in input order. One item's failure never
// aborts the batch; progress and counters are flushed after every item
// so a poller sees them increase monotonically. Cancellation is checked
// once per iteration, between items.
func (s *ingestionService) RunBatch(ctx context.Context, job *types.ImportJob, mpns []string, opts ImportOptions) error {
	job.Status = types.ImportJobRunning
	job.Total = len(mpns)
	if err := s.jobRepo.Update(ctx, nil, job); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	for i, mpn := range mpns {
		cancelled, err := s.jobRepo.IsCancelRequested(ctx, nil, job.ID)
		if err != nil {
			s.log.Warn("Cancel check failed, continuing", "job_id", job.ID, "error", err)
		}
		if cancelled || ctx.Err() != nil {
			job.Status = types.ImportJobCancelled
			if err := s.jobRepo.Update(ctx, nil, job); err != nil {
				s.log.Error("Failed to persist cancelled job", "job_id", job.ID, "error", err)
			}
			s.publish(ctx, job, mpn, "cancelled", "")
			s.log.Info("Import cancelled", "job_id", job.ID, "processed", job.Processed)
			return nil
		}

		outcome, itemErr := s.ImportOne(ctx, mpn, opts)
		itemStatus := "failed"
		if itemErr != nil {
			s.appendError(job, fmt.Sprintf("%s: %v", mpn, itemErr))
		} else {
			itemStatus = outcome.Outcome
			switch outcome.Outcome {
			case "added":
				job.Added++
			case "updated":
				job.Updated++
			case "skipped":
				job.Skipped++
			}
			if outcome.PinoutFound {
				job.PinoutsFound++
			}
			if outcome.Warning != "" {
				s.appendError(job, fmt.Sprintf("%s: %s", mpn, outcome.Warning))
			}
		}

		job.Processed = i + 1
		if err := s.jobRepo.Update(ctx, nil, job); err != nil {
			s.log.Error("Failed to persist job progress", "job_id", job.ID, "error", err)
		}
		errText := ""
		if itemErr != nil {
			errText = itemErr.Error()
		}
		s.publish(ctx, job, mpn, itemStatus, errText)

		if i < len(mpns)-1 && s.itemDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.itemDelay):
			}
		}
	}

	job.Status = types.ImportJobCompleted
	if err := s.jobRepo.Update(ctx, nil, job); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	s.log.Info("Import finished",
		"job_id", job.ID,
		"added", job.Added,
		"updated", job.Updated,
		"skipped", job.Skipped,
		"pinouts_found", job.PinoutsFound,
		"errors", len(job.Errors),
	)
	return nil
}

func (s *ingestionService) appendError(job *types.ImportJob, msg string) {
	if len(job.Errors) >= maxJobErrors {
		return
	}
	job.Errors = append(job.Errors, msg)
}

func (s *ingestionService) publish(ctx context.Context, job *types.ImportJob, mpn, status, errText string) {
	if s.bus == nil {
		return
	}
	msg := redisbus.ImportProgress{
		JobID:     job.ID.String(),
		MPN:       mpn,
		Processed: job.Processed,
		Total:     job.Total,
		Status:    status,
		Error:     errText,
	}
	if err := s.bus.Publish(ctx, msg); err != nil {
		s.log.Debug("Progress publish failed", "job_id", job.ID, "error", err)
	}
}

func (s *ingestionService) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	return s.jobRepo.RequestCancel(ctx, nil, jobID)
}

// ImportOne resolves one MPN through the configured sources in priority
// order (first hit wins, no cross-source merging), persists the
// component, then tries to attach a pinout.
func (s *ingestionService) ImportOne(ctx context.Context, mpn string, opts ImportOptions) (*ImportOutcome, error) {
	mpn = strings.TrimSpace(mpn)
	if mpn == "" {
		return nil, fmt.Errorf("empty part number: %w", pkgerrors.ErrInvalidArgument)
	}

	if opts.SkipExisting {
		exists, err := s.componentRepo.ExistsByMPN(ctx, nil, mpn)
		if err != nil {
			return nil, fmt.Errorf("existence check: %w", err)
		}
		if exists {
			return &ImportOutcome{Outcome: "skipped"}, nil
		}
	}

	part, sourceName, err := s.lookup(ctx, mpn)
	if err != nil {
		return nil, err
	}

	component, created, err := s.persistComponent(ctx, mpn, part, sourceName)
	if err != nil {
		return nil, err
	}

	outcome := &ImportOutcome{Outcome: "updated"}
	if created {
		outcome.Outcome = "added"
	}

	if opts.ExtractPinouts && part.DatasheetURL != "" {
		found, warning := s.attachPinout(ctx, component, part.DatasheetURL)
		outcome.PinoutFound = found
		outcome.Warning = warning
	}
	return outcome, nil
}

func (s *ingestionService) lookup(ctx context.Context, mpn string) (*vendors.PartData, string, error) {
	var lastErr error
	for _, src := range s.sources {
		part, err := src.Lookup(ctx, mpn)
		if err == nil {
			return part, src.Name(), nil
		}
		if errors.Is(err, pkgerrors.ErrNotFound) {
			continue
		}
		s.log.Warn("Part source failed, trying next", "source", src.Name(), "mpn", mpn, "error", err)
		lastErr = err
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("all part sources failed for %s: %w", mpn, lastErr)
	}
	return nil, "", fmt.Errorf("part %s: %w", mpn, pkgerrors.ErrNotFound)
}

func (s *ingestionService) persistComponent(ctx context.Context, mpn string, part *vendors.PartData, sourceName string) (*types.Component, bool, error) {
	packageNormalized := ""
	mountingStyle := ""
	var pinCount *int
	if part.PackageRaw != "" {
		packageNormalized = normalization.NormalizePackage(part.PackageRaw)
		mountingStyle = normalization.MountingStyle(packageNormalized)
		if n, ok := normalization.ExtractPinCount(packageNormalized); ok {
			pinCount = pointers.Int(n)
		}
	}

	manufacturer := normalization.NormalizeManufacturer(part.Manufacturer)
	suffix, _ := normalization.ExtractMPNSuffix(mpn)

	created := false
	if _, err := s.componentRepo.GetByNaturalKey(ctx, nil, part.MPN, manufacturer); err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, false, err
		}
		created = true
	}

	specs := map[string]any{}
	for k, v := range part.Specs {
		specs[k] = v
	}

	component := &types.Component{
		MPN:               part.MPN,
		Manufacturer:      manufacturer,
		Description:       part.Description,
		PackageRaw:        part.PackageRaw,
		PackageNormalized: packageNormalized,
		PinCount:          pinCount,
		MountingStyle:     mountingStyle,
		Specs:             specs,
		LifecycleStatus:   mapLifecycle(part.LifecycleStatus),
		DataSources:       []string{sourceName},
		Confidence:        0.9,
		DatasheetURL:      part.DatasheetURL,
		MPNSuffix:         suffix,
	}

	persisted, err := s.componentRepo.Upsert(ctx, nil, component)
	if err != nil {
		return nil, false, fmt.Errorf("persist component %s: %w", part.MPN, err)
	}
	return persisted, created, nil
}

// attachPinout routes through the datasheet cache first; direct
// one-shot extraction is only the fallback when the cache yields no
// usable pinout. Extraction trouble is a warning, never a failure of
// the item: the component record is already persisted.
func (s *ingestionService) attachPinout(ctx context.Context, component *types.Component, datasheetURL string) (bool, string) {
	entry, err := s.cache.GetOrExtract(ctx, datasheetURL, component.MPN)
	if err != nil {
		return false, fmt.Sprintf("datasheet extraction failed: %v", err)
	}

	if entry != nil {
		match := MatchPinoutToComponent(entry.Packages.Data(), component.PackageNormalized, component.MPNSuffix)
		if match != nil && len(match.Pinout.Pins) > 0 {
			if err := s.writePinout(ctx, component, match, entry, types.PinoutSourceDatasheetCache); err != nil {
				return false, fmt.Sprintf("pinout write failed: %v", err)
			}
			return true, ""
		}
	}

	return s.directExtract(ctx, component, datasheetURL)
}

func (s *ingestionService) directExtract(ctx context.Context, component *types.Component, datasheetURL string) (bool, string) {
	pdfResult, err := s.pdf.ExtractFromURL(ctx, datasheetURL)
	if err != nil {
		return false, fmt.Sprintf("direct extraction fetch failed: %v", err)
	}
	extraction, _, err := s.extractor.ExtractPackages(ctx, pdfResult.Text, component.MPN)
	if err != nil {
		return false, fmt.Sprintf("direct extraction failed: %v", err)
	}

	match := MatchPinoutToComponent(extraction.Packages, component.PackageNormalized, component.MPNSuffix)
	if match == nil || len(match.Pinout.Pins) == 0 {
		return false, "no pinout found in datasheet"
	}
	if err := s.writePinout(ctx, component, match, nil, types.PinoutSourceDirectExtraction); err != nil {
		return false, fmt.Sprintf("pinout write failed: %v", err)
	}
	return true, ""
}

func (s *ingestionService) writePinout(ctx context.Context, component *types.Component, match *PackagePinoutMatch, entry *types.DatasheetCacheEntry, source string) error {
	confidence := 0.9
	if match.Fallback {
		// A fallback match may belong to a different package variant.
		confidence = 0.5
	}

	pins := make([]*types.Pinout, 0, len(match.Pinout.Pins))
	for _, pin := range match.Pinout.Pins {
		pins = append(pins, &types.Pinout{
			PinNumber:   pin.Number,
			PinName:     pin.Name,
			PinFunction: pin.Function,
			Description: pin.Description,
			Source:      source,
			Confidence:  confidence,
		})
	}
	if err := s.pinoutRepo.ReplaceForComponent(ctx, nil, component.ID, pins); err != nil {
		return err
	}

	component.PinoutSource = source
	if entry != nil {
		component.DatasheetCacheID = &entry.ID
	}
	if match.Fallback && component.Confidence > confidence {
		component.Confidence = confidence
	}
	return s.componentRepo.Update(ctx, nil, component)
}

func mapLifecycle(raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case status == "":
		return types.LifecycleUnknown
	case strings.Contains(status, "obsolete"), strings.Contains(status, "discontinued"), strings.Contains(status, "eol"):
		return types.LifecycleObsolete
	case strings.Contains(status, "nrnd"), strings.Contains(status, "not recommended"):
		return types.LifecycleNRND
	case strings.Contains(status, "active"), strings.Contains(status, "new"), strings.Contains(status, "production"):
		return types.LifecycleActive
	default:
		return types.LifecycleUnknown
	}
}
