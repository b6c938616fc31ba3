package coverage

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSites = `{
  "allele_base_counts": [[[0, 1], [20, 19]], [[4], [0], [0, 0]]],
  "grouped_allele_counts": {
    "allele_groups": {"0": [0], "1": [1], "2": [0, 1], "3": [2]},
    "site_counts": [{"0": 2, "1": 20, "2": 1}, {"0": 4}]
  }
}`

func TestLoad(t *testing.T) {
	cov, err := Load(strings.NewReader(twoSites))
	require.NoError(t, err)

	assert.Equal(t, 2, cov.NumSites())
	site, err := cov.Site(0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {20, 19}}, site.PerBase)
	assert.Equal(t, 23, site.Total())
	assert.True(t, site.Groups["2"].Test(0))
	assert.True(t, site.Groups["2"].Test(1))
	assert.Equal(t, uint(2), site.Groups["2"].Count())

	_, err = cov.Site(2)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"site mismatch":  `{"allele_base_counts": [[[1]]], "grouped_allele_counts": {"allele_groups": {}, "site_counts": []}}`,
		"unknown group":  `{"allele_base_counts": [[[1]]], "grouped_allele_counts": {"allele_groups": {}, "site_counts": [{"x": 1}]}}`,
		"negative count": `{"allele_base_counts": [[[1]]], "grouped_allele_counts": {"allele_groups": {"x": [0]}, "site_counts": [{"x": -1}]}}`,
		"allele range":   `{"allele_base_counts": [[[1]]], "grouped_allele_counts": {"allele_groups": {"x": [3]}, "site_counts": [{"x": 1}]}}`,
		"negative index": `{"allele_base_counts": [[[1]]], "grouped_allele_counts": {"allele_groups": {"x": [-1]}, "site_counts": [{"x": 1}]}}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(input))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestAlleleGroupsRoundTrip(t *testing.T) {
	var groups AlleleGroups
	require.NoError(t, json.Unmarshal([]byte(`{"a": [2, 0], "b": []}`), &groups))

	out, err := json.Marshal(groups)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": [0, 2], "b": []}`, string(out))
}

func TestMeanDepth(t *testing.T) {
	cov, err := Load(strings.NewReader(twoSites))
	require.NoError(t, err)
	// site 0: best allele mean 19.5, site 1: 4
	assert.InDelta(t, 11.75, cov.MeanDepth(), 1e-9)

	empty := &Coverage{AlleleBaseCounts: [][][]int{{{0, 0}}}}
	assert.Equal(t, 0.0, empty.MeanDepth())
}
