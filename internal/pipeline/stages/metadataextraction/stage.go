// Package metadataextraction implements the product/manufacturer resolver
// stage: it scans page text for a manufacturer name and model number,
// resolving or creating the corresponding Manufacturer/Product rows.
package metadataextraction

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
	"github.com/krai/engine/internal/repository"
)

// StageID is the fixed stage identifier.
const StageID = "metadata_extraction"

// knownManufacturers lists the display names this resolver recognizes in
// page text, alongside the pattern_key used to look up their error-code
// pattern set. Rebrand pairs (UTAX/Kyocera/Triumph-Adler) resolve to
// distinct manufacturer rows with distinct pattern keys, matching how the
// registry's alias map is organized.
var knownManufacturers = map[string]string{
	"konica minolta": "konica-minolta",
	"ricoh":          "ricoh",
	"kyocera":        "kyocera",
	"utax":           "utax",
	"triumph-adler":  "triumph-adler",
	"canon":          "canon",
	"xerox":          "xerox",
	"hp":             "hp",
	"brother":        "brother",
	"sharp":          "sharp",
	"lexmark":        "lexmark",
}

var modelNumberPattern = regexp.MustCompile(`\b[A-Z]{1,4}[-\s]?\d{3,5}[A-Za-z]?\b`)

// Stage resolves the manufacturer and product model for a document.
type Stage struct {
	shared.BaseStage
	manufacturerRepo repository.ManufacturerRepository
	productRepo      repository.ProductRepository
}

// New creates the metadata extraction stage.
func New(deps *core.Dependencies) core.Stage {
	return &Stage{
		BaseStage:        shared.NewBaseStage(StageID, "Metadata Extraction"),
		manufacturerRepo: deps.ManufacturerRepo,
		productRepo:      deps.ProductRepo,
	}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	sample := sampleText(state.PageTexts)
	name, patternKey := findManufacturer(sample)

	if name == "" {
		state.SetMetadata("manufacturer_resolved", false)
		result.Message = "no recognizable manufacturer name found on sampled pages"
		return result, nil
	}

	mfr, err := s.manufacturerRepo.GetOrCreate(ctx, name, patternKey)
	if err != nil {
		return nil, fmt.Errorf("resolving manufacturer %q: %w", name, err)
	}
	state.ManufacturerID = &mfr.ID
	state.Document.ManufacturerID = &mfr.ID
	state.SetMetadata("manufacturer_resolved", true)
	state.SetMetadata("manufacturer_pattern_key", patternKey)

	if modelNumber := findModelNumber(sample); modelNumber != "" {
		if product, err := s.productRepo.GetByModelNumber(ctx, mfr.ID, modelNumber); err == nil {
			state.SetMetadata("product_id", product.ID)
		} else {
			product := &models.Product{ManufacturerID: mfr.ID, ModelNumber: modelNumber}
			if err := s.productRepo.Create(ctx, product); err == nil {
				state.SetMetadata("product_id", product.ID)
			}
		}
	}

	result.RecordsProcessed = 1
	result.RecordsModified = 1
	result.Message = fmt.Sprintf("resolved manufacturer %s", mfr.Name)
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

func sampleText(pages map[int]string) string {
	keys := make([]int, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	if len(keys) > 3 {
		keys = keys[:3]
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(pages[k])
		b.WriteByte('\n')
	}
	return b.String()
}

func findManufacturer(sample string) (displayName, patternKey string) {
	lower := strings.ToLower(sample)
	for name, key := range knownManufacturers {
		if strings.Contains(lower, name) {
			return strings.Title(name), key
		}
	}
	return "", ""
}

func findModelNumber(sample string) string {
	match := modelNumberPattern.FindString(sample)
	return strings.TrimSpace(match)
}
