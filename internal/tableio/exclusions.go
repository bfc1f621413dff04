// internal/tableio/exclusions.go
package tableio

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadExclusions reads the control-exclusion map: one line per phenotype,
// tab-separated, with a comma-separated list of phenotype columns whose
// diagnoses disqualify that phenotype's controls.
//
//	250.2<TAB>250.1,250.11,249
//
// Lines starting with '#' and blank lines are ignored. A phenotype may be
// absent from the file, meaning no exclusions.
func LoadExclusions(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	out := make(map[string][]string)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.SplitN(text, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s:%d: want phenotype<TAB>exclusions", path, line)
		}
		pheno := strings.TrimSpace(parts[0])
		var ex []string
		for _, e := range strings.Split(parts[1], ",") {
			if e = strings.TrimSpace(e); e != "" {
				ex = append(ex, e)
			}
		}
		if _, dup := out[pheno]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate entry for %s", path, line, pheno)
		}
		out[pheno] = ex
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
