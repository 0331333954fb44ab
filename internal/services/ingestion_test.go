package services

import (
	"context"
	"strings"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/partbase-backend/internal/clients/vendors"
	"github.com/yungbote/partbase-backend/internal/types"
)

func newIngestionForTest(
	t *testing.T,
	componentRepo *fakeComponentRepo,
	pinoutRepo *fakePinoutRepo,
	jobRepo *fakeImportJobRepo,
	cache *fakeCacheService,
	pdf *fakePDFClient,
	extractor *fakeExtractor,
	sources []vendors.PartSource,
) *ingestionService {
	t.Helper()
	t.Setenv("IMPORT_ITEM_DELAY", "0s")
	svc := NewIngestionService(nil, testLogger(t), componentRepo, pinoutRepo, jobRepo, cache, pdf, extractor, sources, nil)
	return svc.(*ingestionService)
}

func cacheEntryWith(packages map[string]types.PackagePinout) *types.DatasheetCacheEntry {
	return &types.DatasheetCacheEntry{
		Status:   types.CacheStatusCompleted,
		Packages: datatypes.NewJSONType(packages),
	}
}

func TestImportOne(t *testing.T) {
	ctx := context.Background()

	az1117 := &vendors.PartData{
		MPN:             "AZ1117CH-3.3",
		Manufacturer:    "Diodes Incorporated",
		Description:     "1A LDO regulator",
		DatasheetURL:    "https://vendor.example/az1117.pdf",
		LifecycleStatus: "Active",
		PackageRaw:      "SOT-89-3",
		Specs:           map[string]any{"vin_max": 12.0, "iout_max": 1.0},
	}

	t.Run("adds a new component with normalized fields", func(t *testing.T) {
		componentRepo := &fakeComponentRepo{}
		pinoutRepo := newFakePinoutRepo()
		cache := &fakeCacheService{entry: cacheEntryWith(map[string]types.PackagePinout{
			"SOT-89": {
				Pins: []types.ExtractedPin{
					{Number: 1, Name: "GND", Function: types.PinFunctionGround},
					{Number: 2, Name: "VOUT", Function: types.PinFunctionOutputVoltage},
					{Number: 3, Name: "VIN", Function: types.PinFunctionInputVoltage},
				},
				SuffixHints: []string{"H"},
			},
			"SOT-223": {
				Pins:        []types.ExtractedPin{{Number: 1, Name: "GND", Function: types.PinFunctionGround}},
				SuffixHints: []string{"S"},
			},
		})}
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		svc := newIngestionForTest(t, componentRepo, pinoutRepo, newFakeImportJobRepo(), cache, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		outcome, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{ExtractPinouts: true})
		if err != nil {
			t.Fatalf("ImportOne: %v", err)
		}
		if outcome.Outcome != "added" || !outcome.PinoutFound {
			t.Fatalf("outcome = %+v, want added with pinout", outcome)
		}

		stored, err := componentRepo.GetByMPN(ctx, nil, "AZ1117CH-3.3")
		if err != nil {
			t.Fatalf("component not stored: %v", err)
		}
		if stored.Manufacturer != "Diodes" {
			t.Errorf("Manufacturer = %q, want Diodes", stored.Manufacturer)
		}
		if stored.PackageNormalized != "SOT-89" {
			t.Errorf("PackageNormalized = %q, want SOT-89", stored.PackageNormalized)
		}
		if stored.MountingStyle != types.MountingSMD {
			t.Errorf("MountingStyle = %q, want SMD", stored.MountingStyle)
		}
		if stored.MPNSuffix != "H" {
			t.Errorf("MPNSuffix = %q, want H", stored.MPNSuffix)
		}
		if stored.LifecycleStatus != types.LifecycleActive {
			t.Errorf("LifecycleStatus = %q, want Active", stored.LifecycleStatus)
		}
		if stored.PinoutSource != types.PinoutSourceDatasheetCache {
			t.Errorf("PinoutSource = %q, want datasheet_cache", stored.PinoutSource)
		}

		pins := pinoutRepo.pins[stored.ID]
		// The suffix "H" selects the SOT-89 variant, not SOT-223.
		if len(pins) != 3 {
			t.Fatalf("stored %d pins, want 3", len(pins))
		}
		for _, p := range pins {
			if p.Source != types.PinoutSourceDatasheetCache || !approxEqual(p.Confidence, 0.9) {
				t.Fatalf("pin %+v, want datasheet_cache source at 0.9", p)
			}
		}
	})

	t.Run("skip existing by mpn", func(t *testing.T) {
		componentRepo := &fakeComponentRepo{components: []*types.Component{
			{MPN: "az1117ch-3.3", Manufacturer: "Diodes"},
		}}
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), newFakeImportJobRepo(), &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		outcome, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{SkipExisting: true})
		if err != nil {
			t.Fatalf("ImportOne: %v", err)
		}
		if outcome.Outcome != "skipped" {
			t.Fatalf("outcome = %q, want skipped", outcome.Outcome)
		}
		if len(source.lookups) != 0 {
			t.Fatalf("source queried %d times for a skipped part", len(source.lookups))
		}
	})

	t.Run("re-import updates instead of adding", func(t *testing.T) {
		componentRepo := &fakeComponentRepo{}
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), newFakeImportJobRepo(), &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		first, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{})
		if err != nil || first.Outcome != "added" {
			t.Fatalf("first import = %+v, %v; want added", first, err)
		}
		second, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{})
		if err != nil || second.Outcome != "updated" {
			t.Fatalf("second import = %+v, %v; want updated", second, err)
		}
		if len(componentRepo.components) != 1 {
			t.Fatalf("stored %d components, want 1", len(componentRepo.components))
		}
	})

	t.Run("sources queried in priority order, first hit wins", func(t *testing.T) {
		miss := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{}}
		hit := &fakePartSource{name: "lcsc", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		componentRepo := &fakeComponentRepo{}
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), newFakeImportJobRepo(), &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{miss, hit})

		if _, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{}); err != nil {
			t.Fatalf("ImportOne: %v", err)
		}
		if len(miss.lookups) != 1 || len(hit.lookups) != 1 {
			t.Fatalf("lookups = %d/%d, want 1/1", len(miss.lookups), len(hit.lookups))
		}
		stored := componentRepo.components[0]
		if len(stored.DataSources) != 1 || stored.DataSources[0] != "lcsc" {
			t.Fatalf("DataSources = %v, want [lcsc]", stored.DataSources)
		}
	})

	t.Run("cache miss falls back to direct extraction", func(t *testing.T) {
		componentRepo := &fakeComponentRepo{}
		pinoutRepo := newFakePinoutRepo()
		// Cache returns nothing usable (lost race or failed entry).
		cache := &fakeCacheService{entry: nil}
		pdf := &fakePDFClient{text: "datasheet body", pages: 4}
		extractor := &fakeExtractor{packages: map[string]types.PackagePinout{
			"SOT-89": {
				Pins:        []types.ExtractedPin{{Number: 1, Name: "GND", Function: types.PinFunctionGround}},
				SuffixHints: []string{"H"},
			},
		}}
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		svc := newIngestionForTest(t, componentRepo, pinoutRepo, newFakeImportJobRepo(), cache, pdf, extractor, []vendors.PartSource{source})

		outcome, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{ExtractPinouts: true})
		if err != nil {
			t.Fatalf("ImportOne: %v", err)
		}
		if !outcome.PinoutFound {
			t.Fatalf("outcome = %+v, want pinout via direct extraction", outcome)
		}
		if cache.calls != 1 || extractor.calls != 1 {
			t.Fatalf("cache/extractor calls = %d/%d, want 1/1", cache.calls, extractor.calls)
		}
		stored := componentRepo.components[0]
		if stored.PinoutSource != types.PinoutSourceDirectExtraction {
			t.Fatalf("PinoutSource = %q, want direct_extraction", stored.PinoutSource)
		}
	})

	t.Run("fallback package match lowers confidence", func(t *testing.T) {
		componentRepo := &fakeComponentRepo{}
		pinoutRepo := newFakePinoutRepo()
		// No suffix hints and no package label that matches SOT-89.
		cache := &fakeCacheService{entry: cacheEntryWith(map[string]types.PackagePinout{
			"DFN-8": {Pins: []types.ExtractedPin{{Number: 1, Name: "GND", Function: types.PinFunctionGround}}},
		})}
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		svc := newIngestionForTest(t, componentRepo, pinoutRepo, newFakeImportJobRepo(), cache, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		outcome, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{ExtractPinouts: true})
		if err != nil {
			t.Fatalf("ImportOne: %v", err)
		}
		if !outcome.PinoutFound {
			t.Fatalf("outcome = %+v, want fallback pinout", outcome)
		}
		stored := componentRepo.components[0]
		if !approxEqual(stored.Confidence, 0.5) {
			t.Fatalf("component Confidence = %v, want 0.5 on fallback match", stored.Confidence)
		}
		for _, p := range pinoutRepo.pins[stored.ID] {
			if !approxEqual(p.Confidence, 0.5) {
				t.Fatalf("pin Confidence = %v, want 0.5", p.Confidence)
			}
		}
	})

	t.Run("extraction failure is a warning, not an item failure", func(t *testing.T) {
		componentRepo := &fakeComponentRepo{}
		cache := &fakeCacheService{err: context.DeadlineExceeded}
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{"az1117ch-3.3": az1117}}
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), newFakeImportJobRepo(), cache, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		outcome, err := svc.ImportOne(ctx, "AZ1117CH-3.3", ImportOptions{ExtractPinouts: true})
		if err != nil {
			t.Fatalf("ImportOne: %v", err)
		}
		if outcome.Outcome != "added" || outcome.Warning == "" {
			t.Fatalf("outcome = %+v, want added with warning", outcome)
		}
		if len(componentRepo.components) != 1 {
			t.Fatal("component not persisted despite extraction failure")
		}
	})
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	part := func(mpn string) *vendors.PartData {
		return &vendors.PartData{MPN: mpn, Manufacturer: "MPS", PackageRaw: "SOIC-8"}
	}

	t.Run("one failure does not abort the batch", func(t *testing.T) {
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{
			"mp2315":  part("MP2315"),
			"mp1584":  part("MP1584"),
			// MPMISSING intentionally absent.
		}}
		componentRepo := &fakeComponentRepo{}
		jobRepo := newFakeImportJobRepo()
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), jobRepo, &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		job, err := jobRepo.Create(ctx, nil, &types.ImportJob{Kind: types.ImportKindBatch, Status: types.ImportJobQueued})
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.RunBatch(ctx, job, []string{"MP2315", "MPMISSING", "MP1584"}, ImportOptions{}); err != nil {
			t.Fatalf("RunBatch: %v", err)
		}

		if job.Status != types.ImportJobCompleted {
			t.Fatalf("Status = %q, want completed", job.Status)
		}
		if job.Processed != 3 || job.Total != 3 {
			t.Fatalf("Processed/Total = %d/%d, want 3/3", job.Processed, job.Total)
		}
		if job.Added != 2 {
			t.Fatalf("Added = %d, want 2", job.Added)
		}
		if len(job.Errors) != 1 || !strings.Contains(job.Errors[0], "MPMISSING") {
			t.Fatalf("Errors = %v, want one entry naming MPMISSING", job.Errors)
		}
	})

	t.Run("cancellation stops before the next item", func(t *testing.T) {
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{
			"mp2315": part("MP2315"),
			"mp1584": part("MP1584"),
			"mp2307": part("MP2307"),
		}}
		jobRepo := newFakeImportJobRepo()
		jobRepo.cancelAfterProcessed = 1
		componentRepo := &fakeComponentRepo{}
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), jobRepo, &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		job, err := jobRepo.Create(ctx, nil, &types.ImportJob{Kind: types.ImportKindBatch, Status: types.ImportJobQueued})
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.RunBatch(ctx, job, []string{"MP2315", "MP1584", "MP2307"}, ImportOptions{}); err != nil {
			t.Fatalf("RunBatch: %v", err)
		}

		if job.Status != types.ImportJobCancelled {
			t.Fatalf("Status = %q, want cancelled", job.Status)
		}
		if job.Processed != 1 {
			t.Fatalf("Processed = %d, want 1 (stopped before the second item)", job.Processed)
		}
		if len(componentRepo.components) != 1 {
			t.Fatalf("stored %d components after cancel, want 1", len(componentRepo.components))
		}
	})

	t.Run("skip counting", func(t *testing.T) {
		source := &fakePartSource{name: "mouser", parts: map[string]*vendors.PartData{
			"mp2315": part("MP2315"),
			"mp1584": part("MP1584"),
		}}
		componentRepo := &fakeComponentRepo{components: []*types.Component{
			{MPN: "MP2315", Manufacturer: "MPS"},
		}}
		jobRepo := newFakeImportJobRepo()
		svc := newIngestionForTest(t, componentRepo, newFakePinoutRepo(), jobRepo, &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		job, err := jobRepo.Create(ctx, nil, &types.ImportJob{Kind: types.ImportKindBatch, Status: types.ImportJobQueued})
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.RunBatch(ctx, job, []string{"MP2315", "MP1584"}, ImportOptions{SkipExisting: true}); err != nil {
			t.Fatalf("RunBatch: %v", err)
		}
		if job.Skipped != 1 || job.Added != 1 {
			t.Fatalf("Skipped/Added = %d/%d, want 1/1", job.Skipped, job.Added)
		}
	})
}

func TestResolveFamily(t *testing.T) {
	ctx := context.Background()

	t.Run("dedupes case-insensitively and includes the base", func(t *testing.T) {
		source := &fakePartSource{
			name:   "mouser",
			family: []string{"AZ1117CH-3.3", "az1117ch-3.3", "AZ1117CS-3.3", " AZ1117CT-3.3 "},
		}
		svc := newIngestionForTest(t, &fakeComponentRepo{}, newFakePinoutRepo(), newFakeImportJobRepo(), &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		mpns, err := svc.resolveFamily(ctx, "AZ1117CH-3.3")
		if err != nil {
			t.Fatalf("resolveFamily: %v", err)
		}
		want := []string{"AZ1117CH-3.3", "AZ1117CS-3.3", "AZ1117CT-3.3"}
		if len(mpns) != len(want) {
			t.Fatalf("mpns = %v, want %v", mpns, want)
		}
		for i := range want {
			if mpns[i] != want[i] {
				t.Fatalf("mpns[%d] = %q, want %q", i, mpns[i], want[i])
			}
		}
	})

	t.Run("no variants anywhere is not found", func(t *testing.T) {
		source := &fakePartSource{name: "mouser"}
		svc := newIngestionForTest(t, &fakeComponentRepo{}, newFakePinoutRepo(), newFakeImportJobRepo(), &fakeCacheService{}, &fakePDFClient{}, &fakeExtractor{}, []vendors.PartSource{source})

		if _, err := svc.resolveFamily(ctx, "MP2315"); err == nil {
			t.Fatal("resolveFamily succeeded with no variants")
		}
	})
}

func TestMapLifecycle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Active", types.LifecycleActive},
		{"In Production", types.LifecycleActive},
		{"New Product", types.LifecycleActive},
		{"Obsolete", types.LifecycleObsolete},
		{"End of Life (EOL)", types.LifecycleObsolete},
		{"NRND", types.LifecycleNRND},
		{"Not Recommended for New Designs", types.LifecycleNRND},
		{"", types.LifecycleUnknown},
		{"Contact Factory", types.LifecycleUnknown},
	}
	for _, tt := range tests {
		if got := mapLifecycle(tt.in); got != tt.want {
			t.Errorf("mapLifecycle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
