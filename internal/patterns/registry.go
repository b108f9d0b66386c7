// Package patterns implements the Manufacturer Pattern Registry: a
// file-backed, atomically-reloadable set of per-manufacturer error-code
// regular expressions and extraction rules. Readers always see a
// consistent immutable snapshot; a failed reload never replaces a valid
// one, matching the sandboxed-storage write-temp-then-rename idiom used
// elsewhere in this module.
package patterns

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/krai/engine/internal/errs"
	"gopkg.in/yaml.v3"
)

// Pattern is a single compiled error-code matcher.
type Pattern struct {
	Name         string `yaml:"name"`
	Regex        string `yaml:"regex"`
	Category     string `yaml:"category"`
	SeverityHint string `yaml:"severity_hint,omitempty"`

	compiled *regexp.Regexp
}

// Compiled returns the compiled regexp for this pattern.
func (p *Pattern) Compiled() *regexp.Regexp {
	return p.compiled
}

// ExtractionRules holds the numeric tuning parameters for a manufacturer's
// pattern set.
type ExtractionRules struct {
	MinConfidence       float64 `yaml:"min_confidence"`
	MaxCodesPerPage      int     `yaml:"max_codes_per_page"`
	ContextWindowChars   int     `yaml:"context_window_chars"`
	TextWindowAfterChars int     `yaml:"text_window_after_chars"`
}

// DefaultExtractionRules returns the spec's documented defaults.
func DefaultExtractionRules() ExtractionRules {
	return ExtractionRules{
		MinConfidence:        0.75,
		MaxCodesPerPage:      15,
		ContextWindowChars:   200,
		TextWindowAfterChars: 2500,
	}
}

// PatternSet is the declarative document for one manufacturer.
type PatternSet struct {
	ManufacturerKey string   `yaml:"manufacturer_key"`
	Aliases         []string `yaml:"aliases,omitempty"`
	Patterns        []Pattern `yaml:"patterns"`
	ValidationRegex string   `yaml:"validation_regex"`
	Rules           ExtractionRules `yaml:"extraction_rules"`

	validationCompiled *regexp.Regexp
}

// Validate reports whether s satisfies the PatternSet's validation_regex.
func (ps *PatternSet) Validate(candidate string) bool {
	if ps.validationCompiled == nil {
		return true
	}
	return ps.validationCompiled.MatchString(candidate)
}

type snapshot struct {
	sets    map[string]*PatternSet
	aliases map[string]string // alias (normalized) -> canonical key
}

// Registry holds an atomically swappable snapshot of every manufacturer's
// pattern set, loaded from a directory of YAML files.
type Registry struct {
	dir string
	cur atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry rooted at dir. Call Load before first use.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Load reads every *.yaml file in the registry directory, compiles its
// regular expressions, and atomically installs the result as the current
// snapshot. A failure leaves the previous snapshot (if any) untouched.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading pattern directory: %w", err)
	}

	snap := &snapshot{
		sets:    make(map[string]*PatternSet),
		aliases: make(map[string]string),
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading pattern file %s: %w", entry.Name(), err)
		}

		var ps PatternSet
		if err := yaml.Unmarshal(raw, &ps); err != nil {
			return fmt.Errorf("parsing pattern file %s: %w", entry.Name(), err)
		}

		if ps.Rules == (ExtractionRules{}) {
			ps.Rules = DefaultExtractionRules()
		}

		if ps.ValidationRegex != "" {
			ps.validationCompiled, err = regexp.Compile(ps.ValidationRegex)
			if err != nil {
				return fmt.Errorf("compiling validation_regex for %s: %w", ps.ManufacturerKey, err)
			}
		}

		for i := range ps.Patterns {
			compiled, err := regexp.Compile(ps.Patterns[i].Regex)
			if err != nil {
				return fmt.Errorf("compiling pattern %q for %s: %w", ps.Patterns[i].Name, ps.ManufacturerKey, err)
			}
			ps.Patterns[i].compiled = compiled
		}

		key := normalizeKey(ps.ManufacturerKey)
		snap.sets[key] = &ps
		for _, alias := range ps.Aliases {
			snap.aliases[normalizeKey(alias)] = key
		}
	}

	r.cur.Store(snap)
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the PatternSet for manufacturerKey, or a *errs.Error of
// kind KindData (ManufacturerPatternNotFound) if none is registered. No
// generic fallback is ever returned.
func (r *Registry) Get(manufacturerKey string) (*PatternSet, error) {
	snap := r.cur.Load()
	if snap == nil {
		return nil, errs.ManufacturerPatternNotFound(manufacturerKey, nil)
	}

	key := normalizeKey(manufacturerKey)
	if ps, ok := snap.sets[key]; ok {
		return ps, nil
	}
	if canonical, ok := snap.aliases[key]; ok {
		if ps, ok := snap.sets[canonical]; ok {
			return ps, nil
		}
	}

	return nil, errs.ManufacturerPatternNotFound(manufacturerKey, r.knownAliasHints(key, snap))
}

// knownAliasHints surfaces the common rebrand pairs the spec calls out
// (e.g. UTAX<->Kyocera) when the requested key participates in one and a
// set is registered under the other name.
func (r *Registry) knownAliasHints(key string, snap *snapshot) []string {
	rebrands := map[string][]string{
		"utax":    {"kyocera"},
		"kyocera": {"utax"},
		"triumph-adler": {"kyocera", "utax"},
	}
	candidates, ok := rebrands[key]
	if !ok {
		return nil
	}
	var hints []string
	for _, c := range candidates {
		if _, ok := snap.sets[c]; ok {
			hints = append(hints, c)
		}
	}
	return hints
}

// ListManufacturers returns every manufacturer key with a registered
// pattern set in the current snapshot.
func (r *Registry) ListManufacturers() []string {
	snap := r.cur.Load()
	if snap == nil {
		return nil
	}
	keys := make([]string, 0, len(snap.sets))
	for k := range snap.sets {
		keys = append(keys, k)
	}
	return keys
}
