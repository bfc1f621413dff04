// core/scan/scan.go
package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"phemas-core/catalog"
	"phemas-core/fitter"
)

// ResourceError reports a failure to stand up the worker pool. It is fatal:
// the run aborts and unfinished slots are marked Aborted.
type ResourceError struct {
	Reason string
}

func (e *ResourceError) Error() string { return "scan: " + e.Reason }

// Options controls the scheduler.
type Options struct {
	// Workers is the pool size; 0 means all CPUs.
	Workers int
	// Progress, if set, is called after each completed fit with the number
	// done so far and the total. Calls may come from any worker.
	Progress func(done, total int)
}

// FitFunc produces one terminal Result for a phenotype. fitter.Fitter.Fit
// satisfies it.
type FitFunc func(*catalog.Spec) fitter.Result

// EffectiveWorkers resolves the pool size Run will use for total tasks:
// requested, defaulting to all CPUs, never more than the task count.
func EffectiveWorkers(requested, total int) int {
	workers := requested
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total {
		workers = total
	}
	return workers
}

// Run fits every phenotype in the catalog and returns one Result per spec in
// catalog order. Each task writes into its own pre-allocated slot, so workers
// never contend on shared state; the only shared input is the read-only
// design matrix captured by fit.
//
// A panic or numerical failure inside one fit yields a Failed result for that
// slot only. Cancellation of ctx marks every unfinished slot Aborted and
// returns the context error; the slot slice is still returned so callers can
// report partial progress.
func Run(ctx context.Context, fit FitFunc, cat *catalog.Catalog, opt Options) ([]fitter.Result, error) {
	total := cat.Len()
	slots := make([]fitter.Result, total)
	for i := 0; i < total; i++ {
		slots[i] = fitter.Aborted(cat.Spec(i).ID)
	}
	if total == 0 {
		return slots, nil
	}

	workers := EffectiveWorkers(opt.Workers, total)

	var next atomic.Int64
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= total {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				slots[i] = fitOne(fit, cat.Spec(i))
				if opt.Progress != nil {
					opt.Progress(int(done.Add(1)), total)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return slots, err
		}
		return slots, &ResourceError{Reason: err.Error()}
	}
	return slots, nil
}

// fitOne isolates a single fit so a panic in the numerics cannot take down
// sibling tasks or the pool.
func fitOne(fit FitFunc, spec *catalog.Spec) (res fitter.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fitter.Failure(spec.ID, fmt.Sprintf("panic during fit: %v", r))
		}
	}()
	return fit(spec)
}

// Summary is run-level metadata attached to a result table.
type Summary struct {
	Predictor string
	Method    string
	Workers   int
	Elapsed   time.Duration

	Success     int
	Skipped     int
	Unconverged int
	Failed      int
	Aborted     int
}

// Count returns the total number of rows summarized.
func (s Summary) Count() int {
	return s.Success + s.Skipped + s.Unconverged + s.Failed + s.Aborted
}
