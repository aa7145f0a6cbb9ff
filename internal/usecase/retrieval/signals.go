package retrieval

import (
	"strings"
	"time"

	"scholar-rag/internal/domain"
)

// lexicalScoreCeiling caps raw BM25 scores before normalizing to [0,1].
const lexicalScoreCeiling = 10.0

// authorityDomains maps trusted host or venue substrings to their bonus.
// Matched against url, doi and venue, first match wins, checked in
// descending-bonus order so the strongest applicable bonus is returned.
var authorityDomains = []struct {
	substr string
	bonus  float64
}{
	{"nasa.gov", 0.07},
	{"nature.com", 0.06},
	{"science.org", 0.06},
	{"nih.gov", 0.05},
	{"cell.com", 0.05},
	{"plos.org", 0.04},
	{"doi.org", 0.02},
}

// normalizeSimilarity maps a dense score to [0,1]. Cosine similarities
// arriving in [-1,1] are shifted; scores already in range pass through.
func normalizeSimilarity(score float64) float64 {
	if score > 1.0 {
		score = (score + 1.0) / 2.0
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// normalizeLexical maps a raw BM25 score to [0,1] with a fixed ceiling.
func normalizeLexical(score float64) float64 {
	if score <= 0 {
		return 0
	}
	if score >= lexicalScoreCeiling {
		return 1
	}
	return score / lexicalScoreCeiling
}

// recencyScore rewards recent publications on a saturating scale. Zero for
// unknown years and anything older than ten years.
func recencyScore(year int, now time.Time) float64 {
	if year <= 0 {
		return 0
	}
	age := now.Year() - year
	switch {
	case age < 0:
		return 0
	case age <= 2:
		return 0.05
	case age <= 5:
		return 0.03
	case age <= 10:
		return 0.01
	default:
		return 0
	}
}

// authorityScore returns the bonus of the first trusted domain found in the
// candidate's url, doi or venue.
func authorityScore(cand domain.Candidate) float64 {
	url := strings.ToLower(cand.URL)
	doi := strings.ToLower(cand.DOI)
	venue := strings.ToLower(cand.Venue)
	for _, d := range authorityDomains {
		if strings.Contains(url, d.substr) || strings.Contains(doi, d.substr) || strings.Contains(venue, d.substr) {
			return d.bonus
		}
	}
	return 0
}

// lengthFitScore prefers passages in the 300-800 character range, tolerates
// near misses and penalizes very short or very long passages.
func lengthFitScore(text string) float64 {
	n := len(text)
	switch {
	case n >= 300 && n <= 800:
		return 0.02
	case (n >= 150 && n < 300) || (n > 800 && n <= 1200):
		return 0
	default:
		return -0.02
	}
}
