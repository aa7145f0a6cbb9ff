package httpapi

import (
	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase"
)

// FilterDTO mirrors domain.FilterFacets on the wire. Absent fields mean no
// constraint.
type FilterDTO struct {
	Organism   []string `json:"organism,omitempty"`
	MissionEnv []string `json:"mission_env,omitempty"`
	Exposure   []string `json:"exposure,omitempty"`
	Tissue     []string `json:"tissue,omitempty"`
	Assay      []string `json:"assay,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	YearFrom   int      `json:"year_from,omitempty"`
	YearTo     int      `json:"year_to,omitempty"`
}

func (f FilterDTO) toDomain() domain.FilterFacets {
	facets := domain.FilterFacets{
		Organism:   f.Organism,
		MissionEnv: f.MissionEnv,
		Exposure:   f.Exposure,
		Tissue:     f.Tissue,
		Assay:      f.Assay,
		Tags:       f.Tags,
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		facets.Years = &domain.YearRange{From: f.YearFrom, To: f.YearTo}
	}
	return facets
}

func filterFromDomain(f domain.FilterFacets) FilterDTO {
	dto := FilterDTO{
		Organism:   f.Organism,
		MissionEnv: f.MissionEnv,
		Exposure:   f.Exposure,
		Tissue:     f.Tissue,
		Assay:      f.Assay,
		Tags:       f.Tags,
	}
	if f.Years != nil {
		dto.YearFrom = f.Years.From
		dto.YearTo = f.Years.To
	}
	return dto
}

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	Query   string    `json:"query"`
	TopK    int       `json:"top_k,omitempty"`
	Filters FilterDTO `json:"filters,omitempty"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query   string    `json:"query"`
	TopK    int       `json:"top_k,omitempty"`
	Filters FilterDTO `json:"filters,omitempty"`
}

// CitationDTO is one provenance record in an answer response.
type CitationDTO struct {
	Marker          int     `json:"marker"`
	ID              string  `json:"id"`
	DocumentID      string  `json:"document_id,omitempty"`
	DOI             string  `json:"doi,omitempty"`
	ExternalID      string  `json:"external_id,omitempty"`
	URL             string  `json:"url,omitempty"`
	Title           string  `json:"title,omitempty"`
	Section         string  `json:"section,omitempty"`
	Venue           string  `json:"venue,omitempty"`
	Year            int     `json:"year,omitempty"`
	Snippet         string  `json:"snippet"`
	SimilarityScore float64 `json:"similarity_score"`
	FinalScore      float64 `json:"final_score"`
	RelevanceReason string  `json:"relevance_reason,omitempty"`
}

func citationFromUsecase(c usecase.Citation) CitationDTO {
	return CitationDTO{
		Marker:          c.Marker,
		ID:              c.ID,
		DocumentID:      c.DocumentID,
		DOI:             c.DOI,
		ExternalID:      c.ExternalID,
		URL:             c.URL,
		Title:           c.Title,
		Section:         c.Section,
		Venue:           c.Venue,
		Year:            c.Year,
		Snippet:         c.Snippet,
		SimilarityScore: c.SimilarityScore,
		FinalScore:      c.FinalScore,
		RelevanceReason: c.RelevanceReason,
	}
}

// MetricsDTO summarizes one answer run.
type MetricsDTO struct {
	LatencyMS           float64        `json:"latency_ms"`
	RetrievedK          int            `json:"retrieved_k"`
	GroundedRatio       float64        `json:"grounded_ratio"`
	DedupCount          int            `json:"dedup_count"`
	SectionDistribution map[string]int `json:"section_distribution"`
}

// AnswerResponse is the body of a successful POST /v1/answer.
type AnswerResponse struct {
	Answer      string        `json:"answer"`
	Citations   []CitationDTO `json:"citations"`
	Metrics     MetricsDTO    `json:"metrics"`
	UsedFilters FilterDTO     `json:"used_filters"`
	Empty       bool          `json:"empty"`
	RequestID   string        `json:"request_id"`
}

// SignalsDTO is the heuristic signal breakdown for one candidate.
type SignalsDTO struct {
	Similarity       float64 `json:"similarity"`
	Lexical          float64 `json:"lexical"`
	KeywordOverlap   float64 `json:"keyword_overlap"`
	SectionBoost     float64 `json:"section_boost"`
	Recency          float64 `json:"recency"`
	Authority        float64 `json:"authority"`
	LengthFit        float64 `json:"length_fit"`
	DuplicatePenalty float64 `json:"duplicate_penalty"`
	Final            float64 `json:"final"`
}

// CandidateDTO is one ranked passage in a retrieve response.
type CandidateDTO struct {
	ID             string      `json:"id"`
	DocumentID     string      `json:"document_id,omitempty"`
	Title          string      `json:"title,omitempty"`
	Section        string      `json:"section,omitempty"`
	URL            string      `json:"url,omitempty"`
	DOI            string      `json:"doi,omitempty"`
	Year           int         `json:"year,omitempty"`
	Text           string      `json:"text"`
	DenseScore     float64     `json:"dense_score"`
	LexicalScore   float64     `json:"lexical_score"`
	FusionScore    float64     `json:"fusion_score"`
	RerankScore    float64     `json:"rerank_score"`
	RerankPosition int         `json:"rerank_position"`
	Signals        *SignalsDTO `json:"signals,omitempty"`
}

func candidateFromDomain(c domain.Candidate) CandidateDTO {
	dto := CandidateDTO{
		ID:             c.ID,
		DocumentID:     c.DocumentID,
		Title:          c.Title,
		Section:        c.Section,
		URL:            c.URL,
		DOI:            c.DOI,
		Year:           c.Year,
		Text:           c.Text,
		DenseScore:     c.DenseScore,
		LexicalScore:   c.LexicalScore,
		FusionScore:    c.FusionScore,
		RerankScore:    c.RerankScore,
		RerankPosition: c.RerankPosition,
	}
	if c.Signals != (domain.SignalBreakdown{}) {
		dto.Signals = &SignalsDTO{
			Similarity:       c.Signals.Similarity,
			Lexical:          c.Signals.Lexical,
			KeywordOverlap:   c.Signals.KeywordOverlap,
			SectionBoost:     c.Signals.SectionBoost,
			Recency:          c.Signals.Recency,
			Authority:        c.Signals.Authority,
			LengthFit:        c.Signals.LengthFit,
			DuplicatePenalty: c.Signals.DuplicatePenalty,
			Final:            c.Signals.Final,
		}
	}
	return dto
}

// ExpansionDTO reports which dictionary keys matched and what was added.
type ExpansionDTO struct {
	MatchedKeys []string `json:"matched_keys"`
	Terms       []string `json:"terms"`
}

// RetrieveResponse is the body of a successful POST /v1/retrieve.
type RetrieveResponse struct {
	Candidates   []CandidateDTO `json:"candidates"`
	Expansion    ExpansionDTO   `json:"expansion"`
	UsedFilters  FilterDTO      `json:"used_filters"`
	FusedCount   int            `json:"fused_count"`
	RerankerUsed string         `json:"reranker_used,omitempty"`
}
