package domain

// Candidate is one retrieved passage plus its metadata and the scores
// accumulated by pipeline stages. Instances are created fresh per request by
// the retrieval clients and annotated in place; they are never persisted.
type Candidate struct {
	// ID is unique within one retrieval call.
	ID string
	// DocumentID groups passages belonging to one source document. It is not
	// unique within a result set.
	DocumentID string
	Text       string
	Title      string
	Section    string
	URL        string
	DOI        string
	ExternalID string
	Venue      string
	Year       int

	// Facet tags synthesized at ingestion time.
	Organism   string
	MissionEnv string
	Exposure   string
	Tissue     string
	Assay      string

	// Scores, populated progressively.
	DenseScore   float64
	LexicalScore float64
	FusionScore  float64
	RerankScore  float64
	// RerankPosition is the 1-indexed position after reranking (0 = not set).
	RerankPosition int

	// Signals holds the per-signal breakdown from the heuristic reranker.
	// Zero value means no breakdown was computed.
	Signals SignalBreakdown
}

// SignalBreakdown is the fixed, typed record of every scoring signal the
// heuristic reranker computes for a candidate. It replaces the loose
// debug-signal map of earlier revisions so citation explanations are built
// from compile-time-checked fields.
type SignalBreakdown struct {
	Similarity       float64
	Lexical          float64
	KeywordOverlap   float64
	SectionBoost     float64
	Recency          float64
	Authority        float64
	LengthFit        float64
	DuplicatePenalty float64
	Final            float64
}

// RankedList is an ordered sequence of candidates produced by one retrieval
// branch or fusion stage. Ordering is significant; ties are broken by
// insertion order so repeated runs are deterministic.
type RankedList []Candidate
