package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"scholar-rag/internal/domain"
)

// Citation is one provenance record per assembled passage, in marker order:
// the citation with Marker N backs the [N] references in the answer text.
type Citation struct {
	Marker     int
	ID         string
	DocumentID string
	DOI        string
	ExternalID string
	URL        string
	Title      string
	Section    string
	Venue      string
	Year       int

	Organism   string
	MissionEnv string
	Exposure   string
	Tissue     string
	Assay      string

	Snippet         string
	SimilarityScore float64
	FinalScore      float64
	Signals         domain.SignalBreakdown
	RelevanceReason string
}

// BuildCitations derives one citation per assembled candidate, preserving
// citation order. Snippets are truncated to snippetMaxChars.
func BuildCitations(candidates domain.RankedList, snippetMaxChars int) []Citation {
	citations := make([]Citation, len(candidates))
	for i, cand := range candidates {
		section := cand.Section
		if strings.TrimSpace(section) == "" {
			section = domain.SectionUnknown
		}
		citations[i] = Citation{
			Marker:          i + 1,
			ID:              cand.ID,
			DocumentID:      cand.DocumentID,
			DOI:             cand.DOI,
			ExternalID:      cand.ExternalID,
			URL:             cand.URL,
			Title:           cand.Title,
			Section:         section,
			Venue:           cand.Venue,
			Year:            cand.Year,
			Organism:        cand.Organism,
			MissionEnv:      cand.MissionEnv,
			Exposure:        cand.Exposure,
			Tissue:          cand.Tissue,
			Assay:           cand.Assay,
			Snippet:         domain.TruncateSnippet(cand.Text, snippetMaxChars),
			SimilarityScore: cand.DenseScore,
			FinalScore:      cand.RerankScore,
			Signals:         cand.Signals,
			RelevanceReason: relevanceReason(cand),
		}
	}
	return citations
}

// relevanceReason concatenates the non-zero signal contributions into a
// human-readable explanation. Candidates without a signal breakdown (the
// cross-encoder path) fall back to the model relevance score.
func relevanceReason(cand domain.Candidate) string {
	sig := cand.Signals
	if sig == (domain.SignalBreakdown{}) {
		return fmt.Sprintf("model relevance %.3f", cand.RerankScore)
	}

	var parts []string
	add := func(name string, value float64) {
		if value != 0 {
			parts = append(parts, fmt.Sprintf("%s %.3f", name, value))
		}
	}
	add("similarity", sig.Similarity)
	add("lexical", sig.Lexical)
	add("keyword overlap", sig.KeywordOverlap)
	add("section boost", sig.SectionBoost)
	add("recency", sig.Recency)
	add("authority", sig.Authority)
	add("length fit", sig.LengthFit)
	add("duplicate penalty", -sig.DuplicatePenalty)
	parts = append(parts, fmt.Sprintf("final %.3f", sig.Final))
	return strings.Join(parts, " | ")
}

var citationMarkerPattern = regexp.MustCompile(`\[\d+\]`)

// EstimateGrounding returns the fraction of answer sentences that carry at
// least one [N] citation marker, clamped to [0,1]. An answer with no markers
// at all, or no sentences, scores 0.
func EstimateGrounding(answer string) float64 {
	if !citationMarkerPattern.MatchString(answer) {
		return 0
	}
	sentences := domain.SplitSentences(answer)
	if len(sentences) == 0 {
		return 0
	}
	grounded := 0
	for _, s := range sentences {
		if citationMarkerPattern.MatchString(s) {
			grounded++
		}
	}
	ratio := float64(grounded) / float64(len(sentences))
	if ratio > 1 {
		return 1
	}
	return ratio
}
