package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/partbase-backend/internal/clients/openai"
	"github.com/yungbote/partbase-backend/internal/clients/pdftext"
	"github.com/yungbote/partbase-backend/internal/clients/vendors"
	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeComponentRepo struct {
	components []*types.Component

	upsertCalls int
	updateCalls int
}

func (f *fakeComponentRepo) find(match func(*types.Component) bool) *types.Component {
	for _, c := range f.components {
		if match(c) {
			return c
		}
	}
	return nil
}

func (f *fakeComponentRepo) Upsert(ctx context.Context, tx *gorm.DB, component *types.Component) (*types.Component, error) {
	f.upsertCalls++
	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	if existing := f.find(func(c *types.Component) bool {
		return c.MPN == component.MPN && c.Manufacturer == component.Manufacturer
	}); existing != nil {
		component.ID = existing.ID
		*existing = *component
		return existing, nil
	}
	f.components = append(f.components, component)
	return component, nil
}

func (f *fakeComponentRepo) Update(ctx context.Context, tx *gorm.DB, component *types.Component) error {
	f.updateCalls++
	if existing := f.find(func(c *types.Component) bool { return c.ID == component.ID }); existing != nil {
		*existing = *component
		return nil
	}
	return fmt.Errorf("component %s: %w", component.ID, pkgerrors.ErrNotFound)
}

func (f *fakeComponentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Component, error) {
	if c := f.find(func(c *types.Component) bool { return c.ID == id }); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("component %s: %w", id, pkgerrors.ErrNotFound)
}

func (f *fakeComponentRepo) GetByMPN(ctx context.Context, tx *gorm.DB, mpn string) (*types.Component, error) {
	if c := f.find(func(c *types.Component) bool { return strings.EqualFold(c.MPN, mpn) }); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("component %s: %w", mpn, pkgerrors.ErrNotFound)
}

func (f *fakeComponentRepo) GetByNaturalKey(ctx context.Context, tx *gorm.DB, mpn, manufacturer string) (*types.Component, error) {
	if c := f.find(func(c *types.Component) bool {
		return c.MPN == mpn && c.Manufacturer == manufacturer
	}); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("component %s/%s: %w", mpn, manufacturer, pkgerrors.ErrNotFound)
}

func (f *fakeComponentRepo) ExistsByMPN(ctx context.Context, tx *gorm.DB, mpn string) (bool, error) {
	return f.find(func(c *types.Component) bool { return strings.EqualFold(c.MPN, mpn) }) != nil, nil
}

func (f *fakeComponentRepo) ListByPackageNormalized(ctx context.Context, tx *gorm.DB, packageNormalized string, excludeID uuid.UUID) ([]*types.Component, error) {
	var results []*types.Component
	for _, c := range f.components {
		if c.PackageNormalized == packageNormalized && c.ID != excludeID {
			results = append(results, c)
		}
	}
	return results, nil
}

func (f *fakeComponentRepo) BulkDelete(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.components[:0]
	for _, c := range f.components {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	f.components = kept
	return nil
}

type fakePinoutRepo struct {
	pins map[uuid.UUID][]*types.Pinout
}

func newFakePinoutRepo() *fakePinoutRepo {
	return &fakePinoutRepo{pins: map[uuid.UUID][]*types.Pinout{}}
}

func (f *fakePinoutRepo) ReplaceForComponent(ctx context.Context, tx *gorm.DB, componentID uuid.UUID, pins []*types.Pinout) error {
	for _, pin := range pins {
		pin.ComponentID = componentID
	}
	f.pins[componentID] = pins
	return nil
}

func (f *fakePinoutRepo) GetByComponentID(ctx context.Context, tx *gorm.DB, componentID uuid.UUID) ([]*types.Pinout, error) {
	return f.pins[componentID], nil
}

type fakeImportJobRepo struct {
	jobs map[uuid.UUID]*types.ImportJob
	// When > 0, report cancellation once Processed reaches this value.
	cancelAfterProcessed int
	updateCalls          int
}

func newFakeImportJobRepo() *fakeImportJobRepo {
	return &fakeImportJobRepo{jobs: map[uuid.UUID]*types.ImportJob{}}
}

func (f *fakeImportJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.ImportJob) (*types.ImportJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeImportJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportJob, error) {
	if job, ok := f.jobs[id]; ok {
		return job, nil
	}
	return nil, fmt.Errorf("import job %s: %w", id, pkgerrors.ErrNotFound)
}

func (f *fakeImportJobRepo) Update(ctx context.Context, tx *gorm.DB, job *types.ImportJob) error {
	f.updateCalls++
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeImportJobRepo) RequestCancel(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	job, ok := f.jobs[id]
	if !ok || (job.Status != types.ImportJobQueued && job.Status != types.ImportJobRunning) {
		return fmt.Errorf("import job %s not cancellable: %w", id, pkgerrors.ErrNotFound)
	}
	job.CancelRequested = true
	return nil
}

func (f *fakeImportJobRepo) IsCancelRequested(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	job, ok := f.jobs[id]
	if !ok {
		return false, nil
	}
	if job.CancelRequested {
		return true, nil
	}
	if f.cancelAfterProcessed > 0 && job.Processed >= f.cancelAfterProcessed {
		return true, nil
	}
	return false, nil
}

type fakeCacheRepo struct {
	entries map[string]*types.DatasheetCacheEntry
	// Forces InsertProcessing to report a lost race.
	loseRace    bool
	insertCalls int
	// When set, Update rejects any write carrying this status with
	// rejectUpdateErr.
	rejectUpdateStatus string
	rejectUpdateErr    error
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: map[string]*types.DatasheetCacheEntry{}}
}

func (f *fakeCacheRepo) GetByNormalizedURL(ctx context.Context, tx *gorm.DB, normalizedURL string) (*types.DatasheetCacheEntry, error) {
	if entry, ok := f.entries[normalizedURL]; ok {
		return entry, nil
	}
	return nil, fmt.Errorf("cache entry for %s: %w", normalizedURL, pkgerrors.ErrNotFound)
}

func (f *fakeCacheRepo) InsertProcessing(ctx context.Context, tx *gorm.DB, entry *types.DatasheetCacheEntry) (bool, error) {
	f.insertCalls++
	if f.loseRace {
		return false, nil
	}
	if _, ok := f.entries[entry.NormalizedURL]; ok {
		return false, nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Status = types.CacheStatusProcessing
	stored := *entry
	f.entries[entry.NormalizedURL] = &stored
	return true, nil
}

// Update stores a copy, like the real repo: later mutations of the
// caller's struct must not leak into the stored row.
func (f *fakeCacheRepo) Update(ctx context.Context, tx *gorm.DB, entry *types.DatasheetCacheEntry) error {
	if f.rejectUpdateStatus != "" && entry.Status == f.rejectUpdateStatus {
		return f.rejectUpdateErr
	}
	stored := *entry
	f.entries[entry.NormalizedURL] = &stored
	return nil
}

func (f *fakeCacheRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	var deleted int64
	for url, entry := range f.entries {
		if entry.ExpiresAt.Before(now) {
			delete(f.entries, url)
			deleted++
		}
	}
	return deleted, nil
}

type fakePDFClient struct {
	text  string
	pages int
	err   error
	calls int
}

func (f *fakePDFClient) ExtractFromURL(ctx context.Context, url string) (*pdftext.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &pdftext.Result{Text: f.text, PageCount: f.pages}, nil
}

type fakeExtractor struct {
	packages map[string]types.PackagePinout
	specs    map[string]any
	usage    openai.Usage
	err      error
	calls    int
}

func (f *fakeExtractor) ExtractPackages(ctx context.Context, text, mpnHint string) (*types.DatasheetExtraction, openai.Usage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.usage, f.err
	}
	packages := f.packages
	if packages == nil {
		packages = map[string]types.PackagePinout{}
	}
	return &types.DatasheetExtraction{Packages: packages, Specs: f.specs}, f.usage, nil
}

func (f *fakeExtractor) Model() string { return "test-model" }

type fakePartSource struct {
	name    string
	parts   map[string]*vendors.PartData // keyed by lowercased MPN
	family  []string
	err     error
	lookups []string
}

func (f *fakePartSource) Name() string { return f.name }

func (f *fakePartSource) Lookup(ctx context.Context, mpn string) (*vendors.PartData, error) {
	f.lookups = append(f.lookups, mpn)
	if f.err != nil {
		return nil, f.err
	}
	if part, ok := f.parts[strings.ToLower(mpn)]; ok {
		return part, nil
	}
	return nil, fmt.Errorf("part %s: %w", mpn, pkgerrors.ErrNotFound)
}

func (f *fakePartSource) SearchFamily(ctx context.Context, baseMPN string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.family, nil
}

type fakeCacheService struct {
	entry *types.DatasheetCacheEntry
	err   error
	calls int
}

func (f *fakeCacheService) GetOrExtract(ctx context.Context, datasheetURL, mpnHint string) (*types.DatasheetCacheEntry, error) {
	f.calls++
	return f.entry, f.err
}

func (f *fakeCacheService) SweepExpired(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeCacheService) StartSweeper(ctx context.Context)                {}
