// internal/tableio/reader.go
package tableio

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"phemas-core/dataset"
)

// Load reads a delimited subject table from path. The delimiter follows the
// extension (.csv comma; .tsv/.txt tab), with .gz transparently decompressed.
// Every column except idColumn is parsed as float64; blank, "NA", "NaN" and
// "null" cells become NaN so downstream missing-value policies can act on
// them. Returns the table and the header in file order.
func Load(path, idColumn string) (*dataset.Table, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	sep, err := delimiterFor(name)
	if err != nil {
		return nil, nil, err
	}
	return Read(r, sep, idColumn)
}

func delimiterFor(name string) (rune, error) {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return ',', nil
	case strings.HasSuffix(name, ".tsv"), strings.HasSuffix(name, ".txt"):
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported input file format: %s", name)
}

// Read parses a delimited table from r. Exposed separately from Load for
// testing and for callers with non-file sources.
func Read(r io.Reader, sep rune, idColumn string) (*dataset.Table, []string, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	names := make([]string, len(header))
	copy(names, header)

	idIdx := -1
	if idColumn != "" {
		for i, h := range names {
			if h == idColumn {
				idIdx = i
				break
			}
		}
		if idIdx < 0 {
			return nil, nil, &dataset.DataError{Column: idColumn, Reason: "not present in input"}
		}
	}

	cols := make([][]float64, len(names))
	var ids []string
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", row+2, err)
		}
		if len(rec) != len(names) {
			return nil, nil, fmt.Errorf("row %d: has %d fields, want %d", row+2, len(rec), len(names))
		}
		for i, cell := range rec {
			if i == idIdx {
				ids = append(ids, cell)
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, nil, &dataset.DataError{
					Column: names[i],
					Reason: fmt.Sprintf("row %d: not numeric: %q", row+2, cell),
				}
			}
			cols[i] = append(cols[i], v)
		}
		row++
	}

	if idIdx < 0 {
		// No ID column declared: synthesize positional identifiers.
		ids = make([]string, row)
		for i := range ids {
			ids[i] = strconv.Itoa(i + 1)
		}
	}

	colMap := make(map[string][]float64, len(names))
	tblNames := make([]string, 0, len(names))
	for i, name := range names {
		if i == idIdx {
			continue
		}
		colMap[name] = cols[i]
		tblNames = append(tblNames, name)
	}
	t, err := dataset.New(ids, tblNames, colMap)
	if err != nil {
		return nil, nil, err
	}
	return t, names, nil
}

func parseCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
