package domain

import "strings"

// Canonical section names carried on candidates. Ingestion normalizes
// headings to these values; anything else is treated as unknown.
const (
	SectionAbstract     = "abstract"
	SectionIntroduction = "introduction"
	SectionMethods      = "methods"
	SectionResults      = "results"
	SectionDiscussion   = "discussion"
	SectionConclusion   = "conclusion"
	SectionReferences   = "references"
	SectionUnknown      = "unknown"
)

// sectionBoost is the additive bonus rerankers apply per section. Abstract
// and results carry the strongest claim density in this corpus.
var sectionBoost = map[string]float64{
	SectionAbstract:     0.10,
	SectionResults:      0.10,
	SectionDiscussion:   0.07,
	SectionConclusion:   0.07,
	SectionMethods:      0.03,
	SectionIntroduction: 0.03,
}

// sectionPriority ranks sections for the single-branch retriever's boost:
// Results > Conclusion > Methods > Introduction > other.
var sectionPriority = map[string]int{
	SectionResults:      4,
	SectionConclusion:   3,
	SectionMethods:      2,
	SectionIntroduction: 1,
}

// excludedSections are section substrings structurally unlikely to contain
// answerable claims; rerankers drop matching candidates.
var excludedSections = []string{"references", "author", "legal", "disclaimer"}

// SectionBoost returns the rerank bonus for a section (substring match, so
// "materials and methods" boosts as methods).
func SectionBoost(section string) float64 {
	s := strings.ToLower(section)
	if boost, ok := sectionBoost[s]; ok {
		return boost
	}
	for name, boost := range sectionBoost {
		if strings.Contains(s, name) {
			return boost
		}
	}
	return 0
}

// SectionPriorityRank returns the priority rank used by the single-branch
// retriever; 0 for unranked sections.
func SectionPriorityRank(section string) int {
	return sectionPriority[strings.ToLower(section)]
}

// IsExcludedSection reports whether the section belongs to the exclusion set.
func IsExcludedSection(section string) bool {
	s := strings.ToLower(section)
	for _, excl := range excludedSections {
		if strings.Contains(s, excl) {
			return true
		}
	}
	return false
}
