// Package enrichment implements the Link/Video Enricher stage: discovering
// URLs in extracted page text, classifying them by provider, resolving
// redirects, fetching page titles, and recording a liveness validation
// status — rate-limited per provider and retriable on transient failures.
package enrichment

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
	"github.com/krai/engine/pkg/httpclient"
)

// StageID is the fixed stage identifier.
const StageID = "enrichment"

// minProviderInterval is the floor on how often a single provider's host
// may be fetched. No rate-limiting library appears anywhere in the
// retrieved corpus, so this is a small hand-rolled mutex-guarded gate
// rather than a fabricated dependency.
const minProviderInterval = 500 * time.Millisecond

const maxFetchBytes = 1 << 20

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

var trailingPunctuation = regexp.MustCompile(`[.,;:!?)\]]+$`)

var videoHostPatterns = map[string]*regexp.Regexp{
	"youtube":   regexp.MustCompile(`(?i)(youtube\.com|youtu\.be)`),
	"vimeo":     regexp.MustCompile(`(?i)vimeo\.com`),
	"brightcove": regexp.MustCompile(`(?i)brightcove\.(com|net)`),
}

// Stage discovers and enriches links and videos referenced in page text.
type Stage struct {
	shared.BaseStage
	breakers *httpclient.CircuitBreakerManager
	limiter  *providerLimiter
	logger   func(string, ...any)
}

// New creates the enrichment stage.
func New(deps *core.Dependencies) core.Stage {
	breakers := deps.BreakerManager
	if breakers == nil {
		breakers = httpclient.NewCircuitBreakerManager(nil)
	}
	logFn := func(string, ...any) {}
	if deps.Logger != nil {
		logFn = func(msg string, args ...any) { deps.Logger.Warn(msg, args...) }
	}
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, "Link/Video Enrichment"),
		breakers:  breakers,
		limiter:   newProviderLimiter(),
		logger:    logFn,
	}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	pages := state.PageTexts
	seen := make(map[string]bool)

	for page, text := range pages {
		for _, raw := range urlPattern.FindAllString(text, -1) {
			url := trailingPunctuation.ReplaceAllString(raw, "")
			if url == "" || seen[url] {
				continue
			}
			seen[url] = true

			provider := classifyProvider(url)
			if provider != "" {
				video := s.enrichVideo(ctx, url, page, provider)
				state.Videos = append(state.Videos, video)
				result.RecordsModified++
				continue
			}

			link := s.enrichLink(ctx, url, page)
			state.Links = append(state.Links, link)
			result.RecordsModified++
		}
	}

	result.RecordsProcessed = len(pages)
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

// classifyProvider returns the recognized video provider name for url, or
// "" if url does not match a known video host.
func classifyProvider(url string) string {
	for name, pattern := range videoHostPatterns {
		if pattern.MatchString(url) {
			return name
		}
	}
	return ""
}

func (s *Stage) enrichVideo(ctx context.Context, url string, page int, provider string) *models.Video {
	video := &models.Video{
		URL:              url,
		PageNumber:       page,
		Provider:         strPtr(provider),
		ValidationStatus: models.ValidationStatusUnchecked,
	}

	title, _, status := s.fetch(ctx, provider, url)
	now := time.Now()
	video.LastCheckedAt = &now
	video.ValidationStatus = status
	if title != "" {
		video.Title = strPtr(title)
	}
	return video
}

func (s *Stage) enrichLink(ctx context.Context, url string, page int) *models.Link {
	link := &models.Link{
		URL:              url,
		PageNumber:       page,
		LinkType:         classifyLinkType(url),
		ValidationStatus: models.ValidationStatusUnchecked,
	}

	title, resolved, status := s.fetch(ctx, providerHost(url), url)
	now := time.Now()
	link.LastCheckedAt = &now
	link.ValidationStatus = status
	if title != "" {
		link.Title = strPtr(title)
	}
	if resolved != "" && resolved != url {
		link.ResolvedURL = strPtr(resolved)
		if link.ValidationStatus == models.ValidationStatusOK {
			link.ValidationStatus = models.ValidationStatusRedirected
		}
	}
	return link
}

// classifyLinkType guesses the kind of resource url points to from its
// extension and path shape; manufacturer-domain detection is left to a
// future pass since no manufacturer-site registry exists in state yet.
func classifyLinkType(url string) models.LinkType {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".pdf"), strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".exe"):
		return models.LinkTypeDownload
	default:
		return models.LinkTypeWebPage
	}
}

// fetch retrieves url through the provider's rate-limited, circuit-broken
// client and returns the page title (if HTML), the final resolved URL
// after redirects, and a validation status.
func (s *Stage) fetch(ctx context.Context, provider, url string) (title, resolved string, status models.ValidationStatus) {
	s.limiter.wait(provider)

	breaker := s.breakers.GetOrCreate(provider)
	client := httpclient.NewWithBreaker(httpclient.DefaultConfig(), breaker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", models.ValidationStatusBroken
	}

	resp, err := client.DoWithContext(ctx, req)
	if err != nil {
		s.logger("enrichment fetch failed", "url", url, "error", err)
		return "", "", models.ValidationStatusBroken
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		resolved = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", resolved, models.ValidationStatusBroken
	}

	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "html") {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
		if err == nil {
			if doc, err := html.Parse(strings.NewReader(string(body))); err == nil {
				title = extractTitle(doc)
			}
		}
	}

	return title, resolved, models.ValidationStatusOK
}

// extractTitle walks an HTML document looking for the <title> element's
// text content.
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return title
}

// providerHost returns a stable per-host key for rate limiting and
// circuit-breaker naming when url isn't a recognized video provider.
func providerHost(url string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func strPtr(s string) *string { return &s }

// providerLimiter enforces minProviderInterval between requests to the
// same provider key.
type providerLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newProviderLimiter() *providerLimiter {
	return &providerLimiter{last: make(map[string]time.Time)}
}

func (l *providerLimiter) wait(provider string) {
	l.mu.Lock()
	last, ok := l.last[provider]
	now := time.Now()
	var sleep time.Duration
	if ok {
		if elapsed := now.Sub(last); elapsed < minProviderInterval {
			sleep = minProviderInterval - elapsed
		}
	}
	l.last[provider] = now.Add(sleep)
	l.mu.Unlock()

	if sleep > 0 {
		time.Sleep(sleep)
	}
}
