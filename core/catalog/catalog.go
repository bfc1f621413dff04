// core/catalog/catalog.go
package catalog

import (
	"math"

	"github.com/bits-and-blooms/bitset"

	"phemas-core/dataset"
)

// Spec is one phenotype to test. All per-subject state (case status,
// control exclusion, missingness) is resolved eagerly at build time so the
// fitter never touches the catalog or the raw count columns again.
type Spec struct {
	ID          string
	MinCases    int
	MinControls int

	cases    *bitset.BitSet
	excluded *bitset.BitSet
	missing  *bitset.BitSet
	n        uint
}

// Case reports whether subject i has at least one diagnosis count for this
// phenotype.
func (s *Spec) Case(i int) bool { return s.cases.Test(uint(i)) }

// Excluded reports whether subject i must be removed from this phenotype's
// controls: it is not a case but carries a diagnosis in the exclusion set.
func (s *Spec) Excluded(i int) bool { return s.excluded.Test(uint(i)) }

// Missing reports whether subject i has no usable count for this phenotype.
func (s *Spec) Missing(i int) bool { return s.missing.Test(uint(i)) }

// Eligible reports whether subject i participates in this phenotype's fit.
func (s *Spec) Eligible(i int) bool {
	u := uint(i)
	return !s.missing.Test(u) && !s.excluded.Test(u)
}

// Catalog is the ordered set of phenotypes for one run. Its order is the
// single source of truth for result ordering.
type Catalog struct {
	specs []Spec
}

// Len returns the number of phenotypes.
func (c *Catalog) Len() int { return len(c.specs) }

// Spec returns the phenotype at catalog position i.
func (c *Catalog) Spec(i int) *Spec { return &c.specs[i] }

// IDs returns the phenotype identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.specs))
	for i := range c.specs {
		ids[i] = c.specs[i].ID
	}
	return ids
}

// Build resolves the catalog from the input table. phenotypes lists the count
// columns to test, in output order. exclusions maps a phenotype to the set of
// phenotype columns whose diagnoses disqualify its controls; entries naming
// absent columns are a DataError, as are negative or non-finite counts.
// A NaN count marks the subject missing for that phenotype only.
func Build(t *dataset.Table, phenotypes []string, exclusions map[string][]string, minCases, minControls int) (*Catalog, error) {
	n := uint(t.Rows())

	// Case bitsets first: exclusion resolution reads sibling phenotypes.
	caseSets := make(map[string]*bitset.BitSet, len(phenotypes))
	missSets := make(map[string]*bitset.BitSet, len(phenotypes))
	for _, name := range phenotypes {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cs := bitset.New(n)
		ms := bitset.New(n)
		for i, v := range col {
			switch {
			case math.IsNaN(v):
				ms.Set(uint(i))
			case v < 0 || math.IsInf(v, 0):
				return nil, &dataset.DataError{Column: name, Reason: "counts must be non-negative"}
			case v > 0:
				cs.Set(uint(i))
			}
		}
		caseSets[name] = cs
		missSets[name] = ms
	}

	specs := make([]Spec, 0, len(phenotypes))
	for _, name := range phenotypes {
		ex := bitset.New(n)
		for _, other := range exclusions[name] {
			if other == name {
				continue
			}
			cs, ok := caseSets[other]
			if !ok {
				// Exclusion columns need not be tested phenotypes themselves.
				col, err := t.Column(other)
				if err != nil {
					return nil, &dataset.DataError{Column: other, Reason: "exclusion criterion for " + name + " not present in input"}
				}
				cs = bitset.New(n)
				for i, v := range col {
					switch {
					case math.IsNaN(v):
					case v < 0 || math.IsInf(v, 0):
						return nil, &dataset.DataError{Column: other, Reason: "counts must be non-negative"}
					case v > 0:
						cs.Set(uint(i))
					}
				}
				caseSets[other] = cs
			}
			ex.InPlaceUnion(cs)
		}
		// Cases stay in regardless of exclusion diagnoses.
		ex.InPlaceDifference(caseSets[name])
		specs = append(specs, Spec{
			ID:          name,
			MinCases:    minCases,
			MinControls: minControls,
			cases:       caseSets[name],
			excluded:    ex,
			missing:     missSets[name],
			n:           n,
		})
	}
	return &Catalog{specs: specs}, nil
}
