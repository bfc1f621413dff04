// core/dataset/table_test.go
package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nan() float64 { return math.NaN() }

func TestNew_ValidatesColumnLengths(t *testing.T) {
	_, err := New([]string{"a", "b"}, []string{"x"}, map[string][]float64{"x": {1}})
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "x", de.Column)
}

func TestNew_ValidatesDeclaredColumns(t *testing.T) {
	_, err := New([]string{"a"}, []string{"x", "y"}, map[string][]float64{"x": {1}})
	require.Error(t, err)
}

func TestColumn_MissingIsDataError(t *testing.T) {
	tbl, err := New([]string{"a"}, []string{"x"}, map[string][]float64{"x": {1}})
	require.NoError(t, err)
	_, err = tbl.Column("nope")
	var de *DataError
	require.ErrorAs(t, err, &de)
}

func TestDropMissing_FiltersAllColumns(t *testing.T) {
	tbl, err := New(
		[]string{"s1", "s2", "s3", "s4"},
		[]string{"x", "y"},
		map[string][]float64{
			"x": {1, nan(), 3, 4},
			"y": {10, 20, 30, 40},
		},
	)
	require.NoError(t, err)

	out, dropped, err := tbl.DropMissing([]string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 3, out.Rows())

	// Alignment: y must be filtered alongside x.
	y, err := out.Column("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 30, 40}, y)
	assert.Equal(t, "s3", out.ID(1))
}

func TestDropMissing_NoMissingReturnsSameTable(t *testing.T) {
	tbl, err := New([]string{"a"}, []string{"x"}, map[string][]float64{"x": {1}})
	require.NoError(t, err)
	out, dropped, err := tbl.DropMissing([]string{"x"})
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Same(t, tbl, out)
}

func TestImputeMean(t *testing.T) {
	tbl, err := New(
		[]string{"a", "b", "c"},
		[]string{"x"},
		map[string][]float64{"x": {1, nan(), 3}},
	)
	require.NoError(t, err)
	out, err := tbl.ImputeMean([]string{"x"})
	require.NoError(t, err)
	x, _ := out.Column("x")
	assert.Equal(t, []float64{1, 2, 3}, x)

	// Original column untouched.
	orig, _ := tbl.Column("x")
	assert.True(t, math.IsNaN(orig[1]))
}

func TestImputeMedian(t *testing.T) {
	tbl, err := New(
		[]string{"a", "b", "c", "d", "e"},
		[]string{"x"},
		map[string][]float64{"x": {5, 1, nan(), 9, 100}},
	)
	require.NoError(t, err)
	out, err := tbl.ImputeMedian([]string{"x"})
	require.NoError(t, err)
	x, _ := out.Column("x")
	assert.Equal(t, 7.0, x[2]) // median of {1,5,9,100}
}

func TestImpute_AllMissingIsDataError(t *testing.T) {
	tbl, err := New([]string{"a", "b"}, []string{"x"}, map[string][]float64{"x": {nan(), nan()}})
	require.NoError(t, err)
	_, err = tbl.ImputeMean([]string{"x"})
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "x", de.Column)
}
