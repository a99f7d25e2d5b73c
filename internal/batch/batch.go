// Package batch runs one job per input file on a bounded pool of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FileError records the failure of one input
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Result summarises a batch
type Result struct {
	Processed int
	Failed    []*FileError
}

// Err joins every file failure, or returns nil
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Runner processes paths with at most Workers jobs in flight. With FailFast
// set the first failure cancels the jobs not yet started.
type Runner struct {
	Workers  int
	FailFast bool
}

// Run calls job once per path. Failures are collected per file; the returned
// error is only set when ctx is cancelled, or on the first failure in
// FailFast mode.
func (r Runner) Run(ctx context.Context, paths []string, job func(ctx context.Context, path string) error) (*Result, error) {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu  sync.Mutex
		res Result
	)
	for _, path := range paths {
		path := path
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := job(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				res.Processed++
				return nil
			}
			slog.WarnContext(gctx, "file failed", "path", path, "error", err)
			fe := &FileError{Path: path, Err: err}
			res.Failed = append(res.Failed, fe)
			if r.FailFast {
				return fe
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return &res, err
}
