// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"

	"phemas/internal/version"
)

// Output formats
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Input
	Input      string
	IDColumn   string
	Predictors string // comma list; names or i:INDEX / i:A-B ranges
	Covariates string
	Phenotypes string
	Exclusions string // optional exclusion-map file

	// Model
	Method      string // firth | logistic
	MinCases    int
	MinControls int
	MaxIter     int
	Tol         float64
	Missing     string // drop | mean | median

	// Performance
	Threads int

	// Output
	Output string // text | json | jsonl
	Adjust string // none | bonferroni | bh
	Sort   bool   // sort rows by p-value (presentation only)
	Header bool   // true unless --no-header
	Quiet  bool

	Version bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: phenome-wide multiple-association scan

Fits one adjusted logistic regression per phenotype (Firth bias-corrected by
default) and reports effect size, standard error, p-value, and counts.

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// Parse is the top-level call for CLI parsing.
func Parse() (Options, error) { return ParseArgs(flag.CommandLine, nil) }

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	// Input
	fs.StringVar(&opt.Input, "input", "", "input table: .csv/.tsv/.txt, optionally .gz [*]")
	fs.StringVar(&opt.IDColumn, "id-column", "", "subject identifier column (excluded from numeric parsing)")
	fs.StringVar(&opt.Predictors, "predictors", "", "predictor column(s): comma list, names or i:INDEX ranges [*]")
	fs.StringVar(&opt.Covariates, "covariates", "", "covariate columns: comma list, names or i:INDEX ranges")
	fs.StringVar(&opt.Phenotypes, "phenotypes", "", "phenotype count columns: comma list, names or i:INDEX ranges [*]")
	fs.StringVar(&opt.Exclusions, "exclusions", "", "exclusion map file (phenotype<TAB>comma,separated,columns)")

	// Model
	fs.StringVar(&opt.Method, "method", "firth", "regression method: firth | logistic [firth]")
	fs.IntVar(&opt.MinCases, "min-cases", 20, "minimum cases after exclusion [20]")
	fs.IntVar(&opt.MinControls, "min-controls", 20, "minimum controls after exclusion [20]")
	fs.IntVar(&opt.MaxIter, "max-iter", 25, "IRLS iteration cap [25]")
	fs.Float64Var(&opt.Tol, "tol", 1e-6, "convergence tolerance on max |delta beta| [1e-6]")
	fs.StringVar(&opt.Missing, "missing", "drop", "missing covariate policy: drop | mean | median [drop]")

	// Performance
	fs.IntVar(&opt.Threads, "threads", 0, "number of worker threads (0 = all CPUs) [0]")

	// Output
	fs.StringVar(&opt.Output, "output", FormatText, "output format: text | json | jsonl [text]")
	fs.StringVar(&opt.Adjust, "adjust", "none", "multiple-testing adjustment: none | bonferroni | bh [none]")
	fs.BoolVar(&opt.Sort, "sort", false, "sort output rows by p-value [false]")
	noHeader := false
	fs.BoolVar(&noHeader, "no-header", false, "suppress header line in text/TSV [false]")
	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress progress logging [false]")

	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.Header = !noHeader

	// Validation
	switch {
	case opt.Input == "":
		return opt, errors.New("--input is required")
	case opt.Predictors == "":
		return opt, errors.New("--predictors is required")
	case opt.Phenotypes == "":
		return opt, errors.New("--phenotypes is required")
	}
	if opt.Method != "firth" && opt.Method != "logistic" {
		return opt, fmt.Errorf("invalid --method %q", opt.Method)
	}
	if opt.Missing != "drop" && opt.Missing != "mean" && opt.Missing != "median" {
		return opt, fmt.Errorf("invalid --missing %q", opt.Missing)
	}
	if opt.Output != FormatText && opt.Output != FormatJSON && opt.Output != FormatJSONL {
		return opt, fmt.Errorf("invalid --output %q", opt.Output)
	}
	if opt.Adjust != "none" && opt.Adjust != "bonferroni" && opt.Adjust != "bh" {
		return opt, fmt.Errorf("invalid --adjust %q", opt.Adjust)
	}
	if opt.MinCases < 0 || opt.MinControls < 0 {
		return opt, errors.New("--min-cases and --min-controls must be ≥ 0")
	}
	if opt.MaxIter < 1 {
		return opt, errors.New("--max-iter must be ≥ 1")
	}
	if opt.Tol <= 0 {
		return opt, errors.New("--tol must be > 0")
	}
	if opt.Threads < 0 {
		return opt, errors.New("--threads must be ≥ 0")
	}
	return opt, nil
}
