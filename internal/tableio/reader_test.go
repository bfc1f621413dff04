// internal/tableio/reader_test.go
package tableio

import (
	"compress/gzip"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phemas-core/dataset"
)

const sampleCSV = `eid,geno,age,250.2
s1,0,40,0
s2,1,50,2
s3,2,NA,1
s4,1,61,null
`

func TestRead_CSVWithIDColumn(t *testing.T) {
	tbl, header, err := Read(strings.NewReader(sampleCSV), ',', "eid")
	require.NoError(t, err)

	assert.Equal(t, []string{"eid", "geno", "age", "250.2"}, header)
	assert.Equal(t, 4, tbl.Rows())
	assert.Equal(t, "s3", tbl.ID(2))
	assert.Equal(t, []string{"geno", "age", "250.2"}, tbl.Names())

	age, err := tbl.Column("age")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(age[2]))
	assert.Equal(t, 61.0, age[3])

	ph, err := tbl.Column("250.2")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ph[3]), "null parses as missing")
	assert.False(t, tbl.Has("eid"), "the id column is not a data column")
}

func TestRead_NoIDColumnSynthesizesIDs(t *testing.T) {
	tbl, _, err := Read(strings.NewReader("x\n1\n2\n3\n"), ',', "")
	require.NoError(t, err)
	assert.Equal(t, "1", tbl.ID(0))
	assert.Equal(t, "3", tbl.ID(2))
}

func TestRead_AbsentIDColumn(t *testing.T) {
	_, _, err := Read(strings.NewReader("x\n1\n"), ',', "eid")
	var de *dataset.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "eid", de.Column)
}

func TestRead_NonNumericCell(t *testing.T) {
	_, _, err := Read(strings.NewReader("x,y\n1,apple\n"), ',', "")
	var de *dataset.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "y", de.Column)
	assert.Contains(t, de.Reason, "row 2")
}

func TestRead_RaggedRow(t *testing.T) {
	_, _, err := Read(strings.NewReader("x,y\n1,2\n3\n"), ',', "")
	assert.ErrorContains(t, err, "row 3")
}

func TestLoad_TSVAndGzip(t *testing.T) {
	dir := t.TempDir()
	tsv := "eid\tx\na\t1\nb\t2\n"

	plain := filepath.Join(dir, "cohort.tsv")
	require.NoError(t, os.WriteFile(plain, []byte(tsv), 0o644))

	gzPath := filepath.Join(dir, "cohort.tsv.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(tsv))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, gzPath} {
		tbl, header, err := Load(path, "eid")
		require.NoError(t, err, path)
		assert.Equal(t, []string{"eid", "x"}, header)
		assert.Equal(t, 2, tbl.Rows())
		x, err := tbl.Column("x")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, x)
	}
}

func TestLoad_UnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cohort.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n"), 0o644))
	_, _, err := Load(path, "")
	assert.ErrorContains(t, err, "unsupported input file format")
}
