package classifier

import (
	"hash/fnv"
	"regexp"
	"strings"
)

// taxonomyV2Categories is the curated four-category set spec.md §4.5's
// Taxonomy Router section names for the taxonomy_v2 shadow path, each
// with its own curated subcategory list — the "ad-hoc regex chains"
// redesign note in spec.md §9 asks for a compiled, table-driven
// tagger rather than inline regex chains, which is what
// SubcategoryTagger below compiles once and reuses.
var taxonomyV2Categories = map[string][]string{
	CategoryDangerous:       {"adult content", "malware", "phishing"},
	CategoryCommercialSpam:  {"auto warranty & insurance", "gibberish domain", "unsolicited marketing"},
	CategoryScams:           {"prize fraud", "advance-fee fraud", "blacklisted TLD"},
	CategoryMarketing:       {"newsletter", "digest", "promotional"},
}

// Pattern is a compiled subcategory-tagging rule, grounded in
// internal/store.SubcategoryPattern but defined independently here so
// this package carries no database dependency.
type Pattern struct {
	Category    string
	Subcategory string
	Weight      float64
	Regexp      *regexp.Regexp
}

// CompilePatterns compiles the raw (category, subcategory, pattern,
// weight) rows loaded from subcategory_patterns once at startup —
// regexp.Compile is never called on the hot classification path.
func CompilePatterns(rows []RawPattern) ([]Pattern, error) {
	compiled := make([]Pattern, 0, len(rows))
	for _, r := range rows {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, Pattern{
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Weight:      r.Weight,
			Regexp:      re,
		})
	}
	return compiled, nil
}

// RawPattern mirrors internal/store.SubcategoryPattern's
// (category, subcategory, pattern, weight) shape.
type RawPattern struct {
	Category    string
	Subcategory string
	Pattern     string
	Weight      float64
}

// SubcategoryTagger applies the compiled pattern table to a subject
// within a given category, only emitting a subcategory when
// category confidence × subcategory confidence clears floor —
// spec.md §4.5's subcategory-emission rule.
type SubcategoryTagger struct {
	Patterns []Pattern
	Floor    float64
}

// NewSubcategoryTagger builds a tagger with the spec's default 0.5
// emission floor.
func NewSubcategoryTagger(patterns []Pattern) *SubcategoryTagger {
	return &SubcategoryTagger{Patterns: patterns, Floor: 0.5}
}

// Tag returns the best-matching subcategory for category/subject, or
// "" if no pattern matches or the combined confidence falls under the
// floor.
func (s *SubcategoryTagger) Tag(category, subject string, categoryConfidence float64) string {
	best := ""
	bestScore := 0.0
	for _, p := range s.Patterns {
		if p.Category != category {
			continue
		}
		if !p.Regexp.MatchString(subject) {
			continue
		}
		combined := categoryConfidence * p.Weight
		if combined >= s.Floor && combined > bestScore {
			best = p.Subcategory
			bestScore = combined
		}
	}
	return best
}

// Router decides, per message, whether the taxonomy_v2 shadow path
// runs alongside the live classifier — deterministic so the same
// message_id always routes the same way within one rollout setting.
type Router struct {
	RolloutPct int // 0..100
}

func NewRouter(rolloutPct int) *Router {
	return &Router{RolloutPct: rolloutPct}
}

// ShadowEligible reports whether messageID falls within the current
// taxonomy_v2 rollout bucket.
func (r *Router) ShadowEligible(messageID string) bool {
	if r.RolloutPct <= 0 {
		return false
	}
	if r.RolloutPct >= 100 {
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(messageID))
	return int(h.Sum32()%100) < r.RolloutPct
}

// ShadowClassify maps a legacy verdict's category onto the nearest
// taxonomy_v2 category and reports whether the two taxonomies agree —
// divergences are logged by the caller but never change the acting
// verdict in shadow mode (spec.md §4.5).
func (r *Router) ShadowClassify(legacy Verdict) (v2Category string, agrees bool) {
	v2Category = mapToV2Category(legacy.Category)
	_, known := taxonomyV2Categories[v2Category]
	return v2Category, known && v2Category == legacy.Category
}

func mapToV2Category(legacyCategory string) string {
	switch {
	case strings.Contains(legacyCategory, "Dangerous"):
		return CategoryDangerous
	case strings.Contains(legacyCategory, "Scam"):
		return CategoryScams
	case strings.Contains(legacyCategory, "Marketing"), strings.Contains(legacyCategory, "Transactional"):
		return CategoryMarketing
	default:
		return CategoryCommercialSpam
	}
}
