// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"phemas-core/catalog"
	"phemas-core/dataset"
	"phemas-core/design"
	"phemas-core/fitter"
	"phemas-core/scan"

	"phemas/internal/cli"
	"phemas/internal/output"
	"phemas/internal/tableio"
	"phemas/internal/version"
	"phemas/internal/writers"
)

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("phemas")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		_, _ = cli.ParseArgs(fs, []string{"-h"})
		fs.SetOutput(outw)
		fs.Usage()
		return flushCode(outw, stderr, 0)
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			return flushCode(outw, stderr, 0)
		}
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.Version {
		_, _ = fmt.Fprintf(outw, "phemas version %s\n", version.Version)
		return flushCode(outw, stderr, 0)
	}

	log := newLogger(stderr, opts.Quiet)
	defer func() { _ = log.Sync() }()

	tables, err := runScan(parent, opts, log)
	if err != nil {
		var dataErr *dataset.DataError
		switch {
		case errors.Is(err, context.Canceled):
			log.Warnw("scan interrupted")
			return 130
		case errors.As(err, &dataErr):
			log.Errorw("invalid input", "error", err)
			return 2
		default:
			log.Errorw("scan failed", "error", err)
			return 3
		}
	}

	rows := output.Flatten(tables)
	if err := writers.Write(outw, opts.Output, rows, opts.Header, opts.Sort); err != nil {
		if writers.IsBrokenPipe(err) {
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
	if e := outw.Flush(); writers.IsBrokenPipe(e) {
		return 0
	} else if e != nil {
		_, _ = fmt.Fprintln(stderr, e)
		return 3
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// runScan is the core pipeline: load → resolve columns → preprocess →
// catalog → one scan per predictor.
func runScan(ctx context.Context, opts cli.Options, log *zap.SugaredLogger) ([]*scan.Table, error) {
	tbl, header, err := tableio.Load(opts.Input, opts.IDColumn)
	if err != nil {
		return nil, err
	}
	log.Infow("input loaded", "file", opts.Input, "subjects", tbl.Rows(), "columns", len(header))

	predictors, err := cli.ResolveColumns(opts.Predictors, header)
	if err != nil {
		return nil, err
	}
	covariates, err := cli.ResolveColumns(opts.Covariates, header)
	if err != nil {
		return nil, err
	}
	phenotypes, err := cli.ResolveColumns(opts.Phenotypes, header)
	if err != nil {
		return nil, err
	}
	if len(predictors) == 0 || len(phenotypes) == 0 {
		return nil, &dataset.DataError{Reason: "no predictor or phenotype columns selected"}
	}
	if err := cli.CheckDisjoint(predictors, phenotypes, covariates); err != nil {
		return nil, err
	}

	exclusions := map[string][]string{}
	if opts.Exclusions != "" {
		exclusions, err = tableio.LoadExclusions(opts.Exclusions)
		if err != nil {
			return nil, err
		}
		log.Infow("exclusion map loaded", "file", opts.Exclusions, "entries", len(exclusions))
	}

	// Missing-value policy applies to the model columns; phenotype counts
	// keep their NaNs, which mark per-phenotype missingness in the catalog.
	model := append(append([]string{}, predictors...), covariates...)
	switch opts.Missing {
	case "drop":
		var dropped int
		tbl, dropped, err = tbl.DropMissing(model)
		if dropped > 0 {
			log.Infow("dropped rows with missing model values", "rows", dropped)
		}
	case "mean":
		tbl, err = tbl.ImputeMean(model)
	case "median":
		tbl, err = tbl.ImputeMedian(model)
	}
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Build(tbl, phenotypes, exclusions, opts.MinCases, opts.MinControls)
	if err != nil {
		return nil, err
	}

	method := fitter.MethodFirth
	if opts.Method == "logistic" {
		method = fitter.MethodLogistic
	}
	adjust, err := scan.ParseAdjustment(opts.Adjust)
	if err != nil {
		return nil, err
	}

	workers := scan.EffectiveWorkers(opts.Threads, cat.Len())
	log.Infow("starting association scan",
		"predictors", len(predictors),
		"phenotypes", cat.Len(),
		"covariates", len(covariates),
		"method", method.String(),
		"workers", workers,
	)

	tables := make([]*scan.Table, 0, len(predictors))
	for _, pred := range predictors {
		X, err := design.Assemble(tbl, pred, covariates)
		if err != nil {
			return nil, err
		}
		fit := &fitter.Fitter{
			X: X,
			Cfg: fitter.Config{
				Method:      method,
				MinCases:    opts.MinCases,
				MinControls: opts.MinControls,
				MaxIter:     opts.MaxIter,
				Tol:         opts.Tol,
			},
		}

		start := time.Now()
		slots, err := scan.Run(ctx, fit.Fit, cat, scan.Options{
			Workers:  opts.Threads,
			Progress: progressLogger(log, pred, cat.Len()),
		})
		if err != nil {
			return nil, err
		}
		t := scan.NewTable(slots, scan.Summary{
			Predictor: pred,
			Method:    method.String(),
			Workers:   workers,
			Elapsed:   time.Since(start),
		})
		t.Adjust(adjust)
		log.Infow("predictor scan complete",
			"predictor", pred,
			"elapsed", t.Summary.Elapsed,
			"success", t.Summary.Success,
			"skipped", t.Summary.Skipped,
			"unconverged", t.Summary.Unconverged,
			"failed", t.Summary.Failed,
		)
		tables = append(tables, t)
	}
	return tables, nil
}

// progressLogger logs roughly every decile of completed fits.
func progressLogger(log *zap.SugaredLogger, predictor string, total int) func(done, total int) {
	step := total / 10
	if step < 1 {
		step = 1
	}
	return func(done, total int) {
		if done == total || done%step == 0 {
			log.Infof("progress %s: %d/%d (%d%%)", predictor, done, total, 100*done/total)
		}
	}
}

func newLogger(stderr io.Writer, quiet bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if quiet {
		level = zapcore.WarnLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(stderr), level)
	return zap.New(core).Sugar()
}

func flushCode(outw *bufio.Writer, stderr io.Writer, code int) int {
	if err := outw.Flush(); writers.IsBrokenPipe(err) {
		return 0
	} else if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
	return code
}
