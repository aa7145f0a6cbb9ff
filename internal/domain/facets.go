package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxAutoFilterTags bounds how many expansion terms may be merged into the
// request's tag filter, to keep index-side filter I/O bounded.
const MaxAutoFilterTags = 10

// YearRange is an inclusive publication-year constraint.
type YearRange struct {
	From int
	To   int
}

// FilterFacets is the query-time facet filter. Empty lists and a nil year
// range mean "no constraint". The struct is treated as immutable after
// validation; MergeTags returns a copy.
type FilterFacets struct {
	Organism   []string
	MissionEnv []string
	Exposure   []string
	Tissue     []string
	Assay      []string
	Tags       []string
	Years      *YearRange
}

// Validate rejects malformed filters before retrieval begins.
func (f FilterFacets) Validate() error {
	lists := map[string][]string{
		"organism":    f.Organism,
		"mission_env": f.MissionEnv,
		"exposure":    f.Exposure,
		"tissue":      f.Tissue,
		"assay":       f.Assay,
		"tags":        f.Tags,
	}
	for name, values := range lists {
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: empty value in facet %q", ErrMalformedFilter, name)
			}
		}
	}
	if f.Years != nil {
		maxYear := time.Now().Year() + 1
		if f.Years.From > f.Years.To {
			return fmt.Errorf("%w: year range %d-%d is inverted", ErrMalformedFilter, f.Years.From, f.Years.To)
		}
		if f.Years.From < 1900 || f.Years.To > maxYear {
			return fmt.Errorf("%w: year range %d-%d outside [1900, %d]", ErrMalformedFilter, f.Years.From, f.Years.To, maxYear)
		}
	}
	return nil
}

// IsZero reports whether no constraint is set.
func (f FilterFacets) IsZero() bool {
	return len(f.Organism) == 0 && len(f.MissionEnv) == 0 && len(f.Exposure) == 0 &&
		len(f.Tissue) == 0 && len(f.Assay) == 0 && len(f.Tags) == 0 && f.Years == nil
}

// MergeTags returns a copy of the filter with the given terms unioned into
// Tags, deduplicated case-insensitively and capped at MaxAutoFilterTags.
// Existing tags keep their position; new terms are appended in input order.
func (f FilterFacets) MergeTags(terms []string) FilterFacets {
	merged := f
	merged.Tags = make([]string, 0, len(f.Tags)+len(terms))
	seen := make(map[string]bool, len(f.Tags)+len(terms))
	for _, t := range f.Tags {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged.Tags = append(merged.Tags, t)
	}
	for _, t := range terms {
		if len(merged.Tags) >= MaxAutoFilterTags {
			break
		}
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged.Tags = append(merged.Tags, t)
	}
	return merged
}
