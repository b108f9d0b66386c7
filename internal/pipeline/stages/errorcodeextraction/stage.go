// Package errorcodeextraction implements the core extractor of the
// pipeline: scanning page text for manufacturer-specific error codes,
// scoring each match's confidence, and extracting an accompanying
// solution using an ordered set of text-shape strategies.
package errorcodeextraction

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/patterns"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
)

// StageID is the fixed stage identifier.
const StageID = "error_code_extraction"

var sectionCues = []string{"error", "code", "fault", "alarm", "sc "}

var disqualifiers = []string{"page ", "figure ", "fig.", "table ", "p/n", "part no", "part number"}

var sectionBreakKeywords = []string{"note:", "warning:", "caution:", "important:"}

const maxListItems = 15
const continuationMinChars = 20

var (
	recommendedActionHeader = regexp.MustCompile(`(?i)recommended action for (customers|technicians|agents)`)
	procedureHeader         = regexp.MustCompile(`(?i)(repair\s+)?procedure\b`)
	explicitLabelPattern    = regexp.MustCompile(`(?i)\b(solution|remedy|fix|resolution)\s*:`)
	numberedItemPattern     = regexp.MustCompile(`(?i)^\s*(?:\d+\.|step\s+\d+[:.]?)\s*(.+)$`)
	bulletedItemPattern     = regexp.MustCompile(`^\s*[-*•]\s*(.+)$`)
	anyListItemPattern      = regexp.MustCompile(`(?i)^\s*(?:\d+\.|step\s+\d+[:.]?|[-*•])\s*(.+)$`)
)

// Stage scans page text for error codes using the manufacturer's
// registered pattern set.
type Stage struct {
	shared.BaseStage
	registry *patterns.Registry
}

// New creates the error code extraction stage.
func New(deps *core.Dependencies) core.Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, "Error Code Extraction"),
		registry:  deps.PatternRegistry,
	}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	resolved, _ := state.GetMetadata("manufacturer_resolved")
	if ok, isBool := resolved.(bool); !isBool || !ok || state.ManufacturerID == nil {
		state.SetMetadata("error_code_extraction_skipped", "no_manufacturer")
		result.Message = "skipped: no manufacturer resolved for this document"
		return result, nil
	}

	patternKey, _ := state.GetMetadata("manufacturer_pattern_key")
	key, _ := patternKey.(string)
	if key == "" {
		key = state.ManufacturerID.String()
	}

	// Registry.Get itself returns a *errs.Error of kind ManufacturerPatternNotFound
	// when the resolved manufacturer has no registered pattern set; the stage
	// aborts by propagating it rather than re-wrapping it.
	set, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}

	pageNumbers := make([]int, 0, len(state.PageTexts))
	for p := range state.PageTexts {
		pageNumbers = append(pageNumbers, p)
	}
	sort.Ints(pageNumbers)

	for _, page := range pageNumbers {
		text := state.PageTexts[page]
		candidates := scanPage(text, set)
		candidates = capPerPage(candidates, set.Rules.MaxCodesPerPage)

		for _, c := range candidates {
			code := &models.ErrorCode{
				ManufacturerID:  *state.ManufacturerID,
				DocumentID:      state.Document.ID,
				Code:            c.code,
				PageNumber:      page,
				ConfidenceScore: c.confidence,
				ContextText:     strPtr(c.context),
			}
			if desc := firstSentence(c.context); desc != "" {
				code.Description = strPtr(desc)
			}
			if solution := extractSolution(text, c.matchEnd, set.Rules.TextWindowAfterChars); solution != "" {
				code.SolutionText = strPtr(solution)
			}
			if c.pattern.SeverityHint != "" {
				code.SeverityLevel = strPtr(c.pattern.SeverityHint)
			}
			code.Metadata = models.JSONMap{"matched_pattern": c.pattern.Name}

			state.ErrorCodes = append(state.ErrorCodes, code)

			artifact := core.NewArtifact(core.ArtifactTypeErrorCode, core.ProcessingStageRaw, StageID).
				WithRecordCount(1).
				WithMetadata("page_number", page).
				WithMetadata("code", c.code)
			state.AddArtifact(StageID, artifact)
		}
	}

	result.RecordsProcessed = len(pageNumbers)
	result.RecordsModified = len(state.ErrorCodes)
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

type candidate struct {
	code       string
	context    string
	confidence float64
	matchStart int
	matchEnd   int
	pattern    patterns.Pattern
}

func scanPage(text string, set *patterns.PatternSet) []candidate {
	var candidates []candidate
	for _, p := range set.Patterns {
		re := p.Compiled()
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			code := text[start:end]
			if !set.Validate(code) {
				continue
			}

			ctxStart := start - set.Rules.ContextWindowChars
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := end + set.Rules.ContextWindowChars
			if ctxEnd > len(text) {
				ctxEnd = len(text)
			}
			contextText := text[ctxStart:ctxEnd]

			confidence := scoreConfidence(p, contextText, start, len(text))
			if confidence < set.Rules.MinConfidence {
				continue
			}

			candidates = append(candidates, candidate{
				code:       code,
				context:    contextText,
				confidence: confidence,
				matchStart: start,
				matchEnd:   end,
				pattern:    p,
			})
		}
	}
	return candidates
}

// scoreConfidence combines pattern specificity, section-cue presence,
// disqualifier absence, and rough positional weighting into a [0,1]
// score. Each factor can only push the score a bounded amount so no
// single signal dominates.
func scoreConfidence(p patterns.Pattern, context string, offset, textLen int) float64 {
	score := 0.5

	specificity := float64(len(p.Regex)) / 40.0
	if specificity > 0.2 {
		specificity = 0.2
	}
	score += specificity

	lower := strings.ToLower(context)
	for _, cue := range sectionCues {
		if strings.Contains(lower, cue) {
			score += 0.1
			break
		}
	}

	for _, d := range disqualifiers {
		if strings.Contains(lower, d) {
			score -= 0.2
			break
		}
	}

	if textLen > 0 {
		relativePosition := float64(offset) / float64(textLen)
		if relativePosition < 0.5 {
			score += 0.05
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// capPerPage sorts candidates by descending confidence (earliest offset
// breaks ties) and keeps at most maxPerPage.
func capPerPage(candidates []candidate, maxPerPage int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		return candidates[i].matchStart < candidates[j].matchStart
	})
	if maxPerPage > 0 && len(candidates) > maxPerPage {
		candidates = candidates[:maxPerPage]
	}
	return candidates
}

func firstSentence(context string) string {
	context = strings.TrimSpace(context)
	if idx := strings.IndexAny(context, ".\n"); idx > 0 {
		return strings.TrimSpace(context[:idx+1])
	}
	return context
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// extractSolution scans the text window following a matched error code for
// an accompanying solution, trying each strategy in order and returning
// the first non-empty result.
func extractSolution(pageText string, matchEnd, windowChars int) string {
	if matchEnd < 0 || matchEnd > len(pageText) {
		return ""
	}
	end := matchEnd + windowChars
	if end > len(pageText) {
		end = len(pageText)
	}
	window := pageText[matchEnd:end]
	lines := strings.Split(window, "\n")

	if sol := strategyRecommendedAction(lines); sol != "" {
		return sol
	}
	if sol := strategyProcedure(lines); sol != "" {
		return sol
	}
	if sol := strategyExplicitLabel(window); sol != "" {
		return sol
	}
	if sol := strategyBareList(lines, numberedItemPattern); sol != "" {
		return sol
	}
	if sol := strategyBareList(lines, bulletedItemPattern); sol != "" {
		return sol
	}
	return ""
}

// strategyRecommendedAction implements (a): a "Recommended action for
// customers/technicians/agents" header followed by a numbered or bulleted
// list of at least 2 items, each at least 15 chars.
func strategyRecommendedAction(lines []string) string {
	idx := findHeaderLine(lines, recommendedActionHeader)
	if idx == -1 {
		return ""
	}
	items := collectListItems(lines, idx+1, anyListItemPattern)
	if len(items) < 2 {
		return ""
	}
	for _, item := range items {
		if len(item) < 15 {
			return ""
		}
	}
	return strings.Join(items, "\n")
}

// strategyProcedure implements (b): a "Procedure"/"Repair procedure" header
// followed by a numbered list.
func strategyProcedure(lines []string) string {
	idx := findHeaderLine(lines, procedureHeader)
	if idx == -1 {
		return ""
	}
	items := collectListItems(lines, idx+1, numberedItemPattern)
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, "\n")
}

// strategyExplicitLabel implements (c): an explicit "Solution:"/"Remedy:"/
// "Fix:"/"Resolution:" label followed by a paragraph up to 1000 chars,
// ending at the first blank line.
func strategyExplicitLabel(window string) string {
	loc := explicitLabelPattern.FindStringIndex(window)
	if loc == nil {
		return ""
	}
	rest := strings.TrimLeft(window[loc[1]:], " \t")
	end := len(rest)
	if idx := strings.Index(rest, "\n\n"); idx >= 0 && idx < end {
		end = idx
	}
	if end > 1000 {
		end = 1000
	}
	paragraph := strings.TrimSpace(rest[:end])
	return paragraph
}

// strategyBareList implements (d) and (e): a bare numbered or bulleted list
// with no preceding header, requiring at least 2 items.
func strategyBareList(lines []string, itemPattern *regexp.Regexp) string {
	idx := findFirstListItem(lines, itemPattern)
	if idx == -1 {
		return ""
	}
	items := collectListItems(lines, idx, itemPattern)
	if len(items) < 2 {
		return ""
	}
	return strings.Join(items, "\n")
}

func findHeaderLine(lines []string, header *regexp.Regexp) int {
	for i, l := range lines {
		if anyListItemPattern.MatchString(strings.TrimSpace(l)) {
			continue
		}
		if header.MatchString(l) {
			return i
		}
	}
	return -1
}

func findFirstListItem(lines []string, itemPattern *regexp.Regexp) int {
	for i, l := range lines {
		if itemPattern.MatchString(strings.TrimSpace(l)) {
			return i
		}
	}
	return -1
}

// collectListItems walks lines from start, accumulating list items matched
// by itemPattern. It stops at a section-break keyword, a blank line once at
// least one item has been collected, or maxListItems items, whichever comes
// first. A continuation line (indented, no new marker, at least
// continuationMinChars) is merged into the preceding item.
func collectListItems(lines []string, start int, itemPattern *regexp.Regexp) []string {
	var items []string
	for i := start; i < len(lines); i++ {
		raw := lines[i]
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" {
			if len(items) > 0 {
				break
			}
			continue
		}

		lowered := strings.ToLower(trimmed)
		stopped := false
		for _, kw := range sectionBreakKeywords {
			if strings.HasPrefix(lowered, kw) {
				stopped = true
				break
			}
		}
		if stopped {
			break
		}

		if len(items) >= maxListItems {
			break
		}

		if m := itemPattern.FindStringSubmatch(trimmed); m != nil {
			items = append(items, strings.TrimSpace(m[len(m)-1]))
			continue
		}

		if len(items) == 0 {
			continue
		}

		if isIndented(raw) && len(trimmed) >= continuationMinChars {
			items[len(items)-1] = items[len(items)-1] + " " + trimmed
			continue
		}

		break
	}
	return items
}

func isIndented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}
