// core/catalog/catalog_test.go
package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phemas-core/dataset"
)

func table(t *testing.T, n int, cols map[string][]float64) *dataset.Table {
	t.Helper()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	tbl, err := dataset.New(make([]string, n), names, cols)
	require.NoError(t, err)
	return tbl
}

func TestBuild_CaseDerivation(t *testing.T) {
	tbl := table(t, 4, map[string][]float64{
		"250.2": {0, 1, 3, math.NaN()},
	})
	cat, err := Build(tbl, []string{"250.2"}, nil, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())

	s := cat.Spec(0)
	assert.False(t, s.Case(0))
	assert.True(t, s.Case(1))
	assert.True(t, s.Case(2)) // any positive count is a case
	assert.False(t, s.Case(3))
	assert.True(t, s.Missing(3))
	assert.False(t, s.Eligible(3))
}

func TestBuild_ExclusionRemovesCarrierControlsOnly(t *testing.T) {
	// Subject 0: control, carries the excluded code -> out.
	// Subject 1: case of 250.2 and carrier -> stays (cases are never excluded).
	// Subject 2: clean control -> stays.
	tbl := table(t, 3, map[string][]float64{
		"250.2": {0, 2, 0},
		"250.1": {1, 1, 0},
	})
	cat, err := Build(tbl, []string{"250.2", "250.1"}, map[string][]string{
		"250.2": {"250.1"},
	}, 1, 1)
	require.NoError(t, err)

	s := cat.Spec(0)
	assert.True(t, s.Excluded(0))
	assert.False(t, s.Excluded(1))
	assert.False(t, s.Excluded(2))
	assert.False(t, s.Eligible(0))
	assert.True(t, s.Eligible(1))

	// 250.1 has no exclusions: everyone eligible.
	s2 := cat.Spec(1)
	for i := 0; i < 3; i++ {
		assert.True(t, s2.Eligible(i))
	}
}

func TestBuild_ExclusionsDoNotLeakAcrossPhenotypes(t *testing.T) {
	tbl := table(t, 2, map[string][]float64{
		"a": {0, 0},
		"b": {1, 0},
		"c": {0, 1},
	})
	cat, err := Build(tbl, []string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
	}, 1, 1)
	require.NoError(t, err)

	assert.True(t, cat.Spec(0).Excluded(0))
	assert.False(t, cat.Spec(1).Excluded(0))
	assert.False(t, cat.Spec(2).Excluded(0))
}

func TestBuild_ExclusionColumnNeedNotBeTested(t *testing.T) {
	tbl := table(t, 2, map[string][]float64{
		"a":     {0, 1},
		"other": {1, 0},
	})
	cat, err := Build(tbl, []string{"a"}, map[string][]string{"a": {"other"}}, 1, 1)
	require.NoError(t, err)
	assert.True(t, cat.Spec(0).Excluded(0))
	assert.False(t, cat.Spec(0).Excluded(1))
}

func TestBuild_AbsentExclusionColumn(t *testing.T) {
	tbl := table(t, 1, map[string][]float64{"a": {0}})
	_, err := Build(tbl, []string{"a"}, map[string][]string{"a": {"ghost"}}, 1, 1)
	var de *dataset.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ghost", de.Column)
}

func TestBuild_NegativeCount(t *testing.T) {
	tbl := table(t, 2, map[string][]float64{"a": {0, -1}})
	_, err := Build(tbl, []string{"a"}, nil, 1, 1)
	var de *dataset.DataError
	require.ErrorAs(t, err, &de)
}

func TestBuild_NegativeCountInExclusionColumn(t *testing.T) {
	// Exclusion-only columns get the same count validation as tested ones.
	tbl := table(t, 2, map[string][]float64{
		"a":     {0, 1},
		"other": {-1, 0},
	})
	_, err := Build(tbl, []string{"a"}, map[string][]string{"a": {"other"}}, 1, 1)
	var de *dataset.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "other", de.Column)
}

func TestBuild_PreservesOrder(t *testing.T) {
	tbl := table(t, 1, map[string][]float64{"z": {0}, "a": {0}, "m": {0}})
	cat, err := Build(tbl, []string{"z", "a", "m"}, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, cat.IDs())
}

func TestBuild_SelfExclusionIgnored(t *testing.T) {
	tbl := table(t, 2, map[string][]float64{"a": {1, 0}})
	cat, err := Build(tbl, []string{"a"}, map[string][]string{"a": {"a"}}, 1, 1)
	require.NoError(t, err)
	assert.True(t, cat.Spec(0).Eligible(1))
}
