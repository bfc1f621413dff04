// internal/output/output.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"phemas-core/fitter"
	"phemas-core/scan"
)

// TSVHeader is the canonical header row for text/TSV outputs.
// Keep this as the single source of truth; all writers should use it.
const TSVHeader = "predictor\tphenotype\tbeta\tse\tpval\tadj_pval\tor\tci_low\tci_high\tn_cases\tn_controls\tn_total\tstatus\tdetail"

// Row pairs one result with the predictor it was fitted for; the core's
// per-predictor tables are flattened into these for writing.
type Row struct {
	Predictor string
	fitter.Result
}

// Flatten expands scan tables into writer rows, preserving table order:
// catalog order within each predictor, predictors in configuration order.
func Flatten(tables []*scan.Table) []Row {
	var rows []Row
	for _, t := range tables {
		for _, r := range t.Results {
			rows = append(rows, Row{Predictor: t.Summary.Predictor, Result: r})
		}
	}
	return rows
}

// SortByP orders rows by ascending p-value, NaNs last, ties broken by
// predictor then phenotype for determinism. Presentation only: the core's
// tables stay in catalog order.
func SortByP(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := rows[i].P, rows[j].P
		switch {
		case math.IsNaN(pi) && math.IsNaN(pj):
			if rows[i].Predictor != rows[j].Predictor {
				return rows[i].Predictor < rows[j].Predictor
			}
			return rows[i].Phenotype < rows[j].Phenotype
		case math.IsNaN(pi):
			return false
		case math.IsNaN(pj):
			return true
		case pi != pj:
			return pi < pj
		case rows[i].Predictor != rows[j].Predictor:
			return rows[i].Predictor < rows[j].Predictor
		}
		return rows[i].Phenotype < rows[j].Phenotype
	})
}

// WriteTSV writes rows as a tab-delimited table.
func WriteTSV(w io.Writer, rows []Row, header bool) error {
	if header {
		if _, err := fmt.Fprintln(w, TSVHeader); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.Predictor, r.Phenotype,
			num(r.Coef), num(r.SE), num(r.P), num(r.AdjP),
			num(r.OddsRatio), num(r.CILow), num(r.CIHigh),
			r.NCases, r.NControls, r.NTotal,
			r.Status, r.Detail,
		); err != nil {
			return err
		}
	}
	return nil
}

// num renders a float with NA for NaN, full float64 round-trip precision
// otherwise (downstream tooling re-parses these).
func num(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// jsonRow is the wire form of one result. NaN cannot travel through
// encoding/json, so optional numerics become pointers.
type jsonRow struct {
	Predictor string   `json:"predictor"`
	Phenotype string   `json:"phenotype"`
	Beta      *float64 `json:"beta"`
	SE        *float64 `json:"se"`
	P         *float64 `json:"pval"`
	AdjP      *float64 `json:"adj_pval,omitempty"`
	OR        *float64 `json:"or"`
	CILow     *float64 `json:"ci_low"`
	CIHigh    *float64 `json:"ci_high"`
	NCases    int      `json:"n_cases"`
	NControls int      `json:"n_controls"`
	NTotal    int      `json:"n_total"`
	Status    string   `json:"status"`
	Detail    string   `json:"detail,omitempty"`
	Iters     int      `json:"iterations,omitempty"`
}

func toJSONRow(r Row) jsonRow {
	return jsonRow{
		Predictor: r.Predictor,
		Phenotype: r.Phenotype,
		Beta:      opt(r.Coef),
		SE:        opt(r.SE),
		P:         opt(r.P),
		AdjP:      opt(r.AdjP),
		OR:        opt(r.OddsRatio),
		CILow:     opt(r.CILow),
		CIHigh:    opt(r.CIHigh),
		NCases:    r.NCases,
		NControls: r.NControls,
		NTotal:    r.NTotal,
		Status:    r.Status.String(),
		Detail:    r.Detail,
		Iters:     r.Iters,
	}
}

func opt(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// WriteJSON writes all rows as one JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		out[i] = toJSONRow(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(toJSONRow(r)); err != nil {
			return err
		}
	}
	return nil
}
