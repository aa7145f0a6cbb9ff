package expansion

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"scholar-rag/internal/domain"
)

// Dictionary is the versioned term-expansion artifact. The file is produced
// offline from corpus keyword statistics and shipped alongside the service.
type Dictionary struct {
	Version string              `json:"version"`
	Terms   map[string][]string `json:"terms"`
}

// LoadDictionary reads the JSON expansion dictionary at path.
func LoadDictionary(path string, logger *slog.Logger) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expansion dictionary: %w", err)
	}

	var dict Dictionary
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("failed to parse expansion dictionary: %w", err)
	}
	if len(dict.Terms) == 0 {
		return nil, fmt.Errorf("expansion dictionary %q has no terms", path)
	}

	logger.Info("expansion_dictionary_loaded",
		slog.String("path", path),
		slog.String("version", dict.Version),
		slog.Int("term_count", len(dict.Terms)))
	return &dict, nil
}

// NewExpander builds a TermExpander from the loaded artifact. maxTerms caps
// the number of expansion terms per query; 0 uses the domain default.
func (d *Dictionary) NewExpander(maxTerms int) *domain.TermExpander {
	return domain.NewTermExpander(d.Terms, maxTerms)
}
