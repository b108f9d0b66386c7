// Package classification implements the document-type/language
// classification stage. Per spec, a low-confidence classification is
// never fatal: it is recorded as a warning and the pipeline proceeds.
package classification

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
)

// StageID is the fixed stage identifier.
const StageID = "classification"

// MinConfidence is the threshold below which a LowConfidenceWarning is
// recorded. The stage still completes either way.
const MinConfidence = 0.6

// keyword-weighted document-type classification: a small, explainable
// scorer rather than a model, matching the extractor contracts' emphasis
// on deterministic, inspectable behavior.
var typeKeywords = map[string][]string{
	"service_manual":         {"service manual", "disassembly", "error code", "troubleshooting"},
	"parts_catalog":          {"parts catalog", "part number", "exploded view"},
	"technical_bulletin":     {"bulletin", "field notice", "advisory"},
	"cpmd_database":          {"cpmd", "call procedure"},
	"user_manual":            {"user guide", "getting started", "user manual"},
	"installation_guide":     {"installation guide", "setup instructions", "unpacking"},
	"troubleshooting_guide":  {"troubleshooting guide", "diagnostic flowchart"},
}

var supportedLanguages = []language.Tag{
	language.English, language.German, language.French, language.Spanish, language.Japanese,
}

// Stage classifies the document's type and primary language from its
// extracted page text.
type Stage struct {
	shared.BaseStage
}

// New creates the classification stage.
func New(deps *core.Dependencies) core.Stage {
	return &Stage{BaseStage: shared.NewBaseStage(StageID, "Classification")}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	sample := sampleText(state.PageTexts, 5)
	docType, confidence := classifyType(sample)
	lang := detectLanguage(sample)

	state.SetMetadata("document_type_guess", docType)
	state.SetMetadata("document_type_confidence", confidence)
	state.SetMetadata("language", lang)
	if state.Document.Language == nil {
		l := lang
		state.Document.Language = &l
	}

	if confidence < MinConfidence {
		state.SetMetadata("classification_low_confidence_warning", true)
	}

	result.RecordsProcessed = len(state.PageTexts)
	result.Message = "classified document type " + docType + " with confidence scoring, never fatal"
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

// sampleText concatenates up to n pages' text for cheap keyword scoring.
func sampleText(pages map[int]string, n int) string {
	keys := make([]int, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	if len(keys) > n {
		keys = keys[:n]
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.ToLower(pages[k]))
		b.WriteByte('\n')
	}
	return b.String()
}

func classifyType(sample string) (string, float64) {
	bestType := "service_manual"
	bestScore := 0
	total := 0
	for docType, keywords := range typeKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(sample, kw) {
				score++
			}
		}
		total += score
		if score > bestScore {
			bestScore = score
			bestType = docType
		}
	}
	if total == 0 {
		return bestType, 0
	}
	return bestType, float64(bestScore) / float64(max(total, bestScore))
}

// detectLanguage picks the supported language tag whose common stopwords
// appear most often in sample, defaulting to English.
func detectLanguage(sample string) string {
	stopwords := map[language.Tag][]string{
		language.English: {" the ", " and ", " is "},
		language.German:  {" der ", " und ", " ist "},
		language.French:  {" le ", " et ", " est "},
		language.Spanish: {" el ", " y ", " es "},
		language.Japanese: {"です", "ます"},
	}

	best := language.English
	bestScore := -1
	for _, tag := range supportedLanguages {
		score := 0
		for _, w := range stopwords[tag] {
			score += strings.Count(sample, w)
		}
		if score > bestScore {
			bestScore = score
			best = tag
		}
	}
	base, _ := best.Base()
	return base.String()
}
