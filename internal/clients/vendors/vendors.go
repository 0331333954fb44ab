// Package vendors holds the part-lookup clients. Each source implements
// PartSource; the ingestion orchestrator queries them in a fixed
// priority order and takes the first hit without merging across sources.
package vendors

import (
	"context"
	"strings"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/utils"
)

// PartData is the vendor-neutral lookup result consumed by ingestion.
type PartData struct {
	MPN             string
	Manufacturer    string
	Description     string
	DatasheetURL    string
	LifecycleStatus string
	PackageRaw      string
	Specs           map[string]any
}

type PartSource interface {
	Name() string
	// Lookup resolves one MPN. A miss is pkgerrors.ErrNotFound; anything
	// else is an upstream failure.
	Lookup(ctx context.Context, mpn string) (*PartData, error)
}

// FamilySearcher is implemented by sources that can enumerate the
// variants of a part family from a base MPN.
type FamilySearcher interface {
	SearchFamily(ctx context.Context, baseMPN string) ([]string, error)
}

// ErrPartNotFound aliases the shared sentinel so callers can use either.
var ErrPartNotFound = pkgerrors.ErrNotFound

// BuildSources constructs the configured sources in priority order.
// PART_SOURCE_ORDER is a comma list of source names; sources missing
// their API key are skipped with a warning.
func BuildSources(log *logger.Logger) []PartSource {
	order := utils.GetEnv("PART_SOURCE_ORDER", "mouser,lcsc", log)

	var sources []PartSource
	for _, name := range strings.Split(order, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "mouser":
			src, err := NewMouserClient(log)
			if err != nil {
				log.Warn("Skipping part source", "source", "mouser", "error", err)
				continue
			}
			sources = append(sources, src)
		case "lcsc":
			sources = append(sources, NewLCSCClient(log))
		case "":
		default:
			log.Warn("Unknown part source in PART_SOURCE_ORDER", "source", name)
		}
	}
	return sources
}
