package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the retrieval pipeline. Branch-level failures are
// recovered locally and never reach callers as errors; these sentinels mark
// the conditions the orchestrator must distinguish.
var (
	// ErrAllBranchesFailed means both the dense and lexical branches failed or
	// timed out. Callers translate this into an empty-result response, since
	// "no relevant passages" is a valid business outcome.
	ErrAllBranchesFailed = errors.New("all retrieval branches failed")

	// ErrNoCandidatesAboveThreshold means retrieval ran but nothing cleared
	// the similarity floor. Same empty-result handling as above.
	ErrNoCandidatesAboveThreshold = errors.New("no candidates above similarity threshold")

	// ErrExternalModel marks a cross-encoder or LLM call failure. It is
	// surfaced to the caller as a request failure; the core does not retry.
	ErrExternalModel = errors.New("external model call failed")

	// ErrMalformedFilter marks an invalid facet/year-range combination,
	// rejected before retrieval begins.
	ErrMalformedFilter = errors.New("malformed facet filter")
)

// WrapExternalModel tags err as an external model failure so callers can
// match it with errors.Is(err, ErrExternalModel).
func WrapExternalModel(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrExternalModel, err)
}
