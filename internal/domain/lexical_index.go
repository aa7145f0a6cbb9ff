package domain

import (
	"math"
	"sort"
)

// Okapi BM25 constants. k1 controls term-frequency saturation, b controls
// document-length normalization; both are the standard defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type lexicalDoc struct {
	tf  map[string]int
	len int
}

// LexicalIndex is an in-memory Okapi BM25 index built once over a corpus
// snapshot. It is immutable after construction and safe for concurrent use;
// rebuilding means constructing a new instance and swapping it in atomically.
type LexicalIndex struct {
	candidates []Candidate
	docs       []lexicalDoc
	idf        map[string]float64
	avgDocLen  float64
}

// NewLexicalIndex tokenizes every passage and precomputes term statistics.
// An empty snapshot yields a valid index that returns no results.
func NewLexicalIndex(snapshot []Candidate) *LexicalIndex {
	idx := &LexicalIndex{
		candidates: snapshot,
		docs:       make([]lexicalDoc, len(snapshot)),
		idf:        make(map[string]float64),
	}
	if len(snapshot) == 0 {
		return idx
	}

	df := make(map[string]int)
	totalLen := 0
	for i, cand := range snapshot {
		tokens := Tokenize(cand.Text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.docs[i] = lexicalDoc{tf: tf, len: len(tokens)}
		totalLen += len(tokens)
		for term := range tf {
			df[term]++
		}
	}

	n := float64(len(snapshot))
	idx.avgDocLen = float64(totalLen) / n
	for term, docFreq := range df {
		idx.idf[term] = math.Log(1 + (n-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
	}
	return idx
}

// Size returns the number of indexed passages.
func (idx *LexicalIndex) Size() int { return len(idx.candidates) }

// Search scores the corpus against the query plus weighted expansion terms
// and returns the topK candidates by BM25 score, with LexicalScore attached.
// Expansion tokens contribute with expansionWeight relative to original query
// tokens (0.5 means half the influence) so expansions bias the ranking
// without dominating it. Deterministic for a fixed index and query; ties keep
// corpus insertion order.
func (idx *LexicalIndex) Search(query string, expansionTerms []string, topK int, expansionWeight float64) RankedList {
	if topK <= 0 || len(idx.candidates) == 0 {
		return nil
	}

	// Weighted query term frequencies: original tokens at weight 1.0,
	// expansion tokens at expansionWeight.
	queryTF := make(map[string]float64)
	for _, tok := range Tokenize(query) {
		queryTF[tok] += 1.0
	}
	if expansionWeight > 0 {
		for _, term := range expansionTerms {
			for _, tok := range Tokenize(term) {
				queryTF[tok] += expansionWeight
			}
		}
	}
	if len(queryTF) == 0 {
		return nil
	}

	type scored struct {
		index int
		score float64
	}
	results := make([]scored, 0, len(idx.candidates))
	for i := range idx.docs {
		score := idx.scoreDoc(queryTF, i)
		if score > 0 {
			results = append(results, scored{index: i, score: score})
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	ranked := make(RankedList, len(results))
	for i, r := range results {
		cand := idx.candidates[r.index]
		cand.LexicalScore = r.score
		ranked[i] = cand
	}
	return ranked
}

func (idx *LexicalIndex) scoreDoc(queryTF map[string]float64, docIdx int) float64 {
	doc := idx.docs[docIdx]
	dl := float64(doc.len)
	var score float64
	for term, qWeight := range queryTF {
		tf, ok := doc.tf[term]
		if !ok {
			continue
		}
		termIDF, ok := idx.idf[term]
		if !ok {
			continue
		}
		tfF := float64(tf)
		numerator := tfF * (bm25K1 + 1)
		denominator := tfF + bm25K1*(1-bm25B+bm25B*dl/idx.avgDocLen)
		score += qWeight * termIDF * numerator / denominator
	}
	return score
}
