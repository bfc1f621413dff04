// internal/cli/columns.go
package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ResolveColumns expands a comma-separated column spec against the input
// header. Entries are either literal column names or index selectors:
//
//	i:4     column 4 (zero-based)
//	i:4-10  columns 4..9 (half-open)
//	i:4-    column 4 through the last column
//
// Unknown names and out-of-range indices are errors; the result preserves
// spec order.
func ResolveColumns(spec string, header []string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	pos := make(map[string]struct{}, len(header))
	for _, h := range header {
		pos[h] = struct{}{}
	}
	var out []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "i:") {
			cols, err := resolveIndexed(part[2:], header)
			if err != nil {
				return nil, err
			}
			out = append(out, cols...)
			continue
		}
		if _, ok := pos[part]; !ok {
			return nil, fmt.Errorf("column %q does not exist in the input", part)
		}
		out = append(out, part)
	}
	return out, nil
}

func resolveIndexed(expr string, header []string) ([]string, error) {
	n := len(header)
	if !strings.Contains(expr, "-") {
		i, err := strconv.Atoi(expr)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid index selector i:%s", expr)
		}
		if i >= n {
			return nil, fmt.Errorf("index %d out of range for input with %d columns", i, n)
		}
		return []string{header[i]}, nil
	}
	bounds := strings.SplitN(expr, "-", 2)
	start, err := strconv.Atoi(bounds[0])
	if err != nil || start < 0 {
		return nil, fmt.Errorf("invalid index selector i:%s", expr)
	}
	end := n
	if bounds[1] != "" {
		end, err = strconv.Atoi(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("invalid index selector i:%s", expr)
		}
	}
	if start >= n {
		return nil, fmt.Errorf("start index %d out of range for input with %d columns", start, n)
	}
	if end > n {
		return nil, fmt.Errorf("end index %d out of range for input with %d columns (use %d- for all remaining)", end, n, start)
	}
	if end <= start {
		return nil, fmt.Errorf("empty index range i:%s", expr)
	}
	return header[start:end], nil
}

// CheckDisjoint rejects overlap between the predictor, phenotype, and
// covariate sets; a column playing two roles silently corrupts the model.
func CheckDisjoint(predictors, phenotypes, covariates []string) error {
	seen := make(map[string]string)
	for _, group := range []struct {
		role string
		cols []string
	}{
		{"predictor", predictors},
		{"phenotype", phenotypes},
		{"covariate", covariates},
	} {
		for _, c := range group.cols {
			if prev, ok := seen[c]; ok && prev != group.role {
				return fmt.Errorf("column %q used as both %s and %s", c, prev, group.role)
			}
			seen[c] = group.role
		}
	}
	return nil
}
