package domain_test

import (
	"testing"

	"scholar-rag/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSectionBoost(t *testing.T) {
	assert.Equal(t, 0.10, domain.SectionBoost("abstract"))
	assert.Equal(t, 0.10, domain.SectionBoost("Results"))
	assert.Equal(t, 0.07, domain.SectionBoost("discussion"))
	assert.Equal(t, 0.07, domain.SectionBoost("conclusion"))
	assert.Equal(t, 0.03, domain.SectionBoost("methods"))
	assert.Equal(t, 0.03, domain.SectionBoost("materials and methods"))
	assert.Equal(t, 0.0, domain.SectionBoost("references"))
	assert.Equal(t, 0.0, domain.SectionBoost("unknown"))
	assert.Equal(t, 0.0, domain.SectionBoost(""))
}

func TestSectionPriorityRank(t *testing.T) {
	assert.Equal(t, 4, domain.SectionPriorityRank("results"))
	assert.Equal(t, 3, domain.SectionPriorityRank("Conclusion"))
	assert.Equal(t, 2, domain.SectionPriorityRank("methods"))
	assert.Equal(t, 1, domain.SectionPriorityRank("introduction"))
	assert.Equal(t, 0, domain.SectionPriorityRank("abstract"))
	assert.Equal(t, 0, domain.SectionPriorityRank(""))
}

func TestIsExcludedSection(t *testing.T) {
	assert.True(t, domain.IsExcludedSection("references"))
	assert.True(t, domain.IsExcludedSection("Author Notes"))
	assert.True(t, domain.IsExcludedSection("legal disclaimer"))
	assert.False(t, domain.IsExcludedSection("results"))
	assert.False(t, domain.IsExcludedSection(""))
}
