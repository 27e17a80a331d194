// Package batch runs one conversion per file over a worker pool, isolating
// per-file failures.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Result holds the outcome of processing one file.
type Result struct {
	Path     string
	Err      error
	Duration time.Duration
}

// OK reports whether the file was processed successfully.
func (r Result) OK() bool { return r.Err == nil }

// Summary aggregates a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    []string
}

// Summarize counts results and lists failed paths in input order.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.OK() {
			s.Succeeded++
			continue
		}
		s.Failed = append(s.Failed, r.Path)
	}
	return s
}

func (s Summary) String() string {
	if len(s.Failed) == 0 {
		return fmt.Sprintf("%d/%d converted", s.Succeeded, s.Total)
	}
	return fmt.Sprintf("%d/%d converted, %d failed: %s",
		s.Succeeded, s.Total, len(s.Failed), strings.Join(s.Failed, ", "))
}

// Func processes one file.
type Func func(ctx context.Context, path string) error

// ProgressInterval is how often a running batch logs its progress.
var ProgressInterval = 2 * time.Second

// Run calls fn for every file with up to workers concurrent calls and returns
// one result per file in input order. A failing or panicking call only fails
// its own file. Files not yet started when ctx is cancelled fail with the
// context error.
func Run(ctx context.Context, files []string, workers int, fn Func, log *zap.Logger) []Result {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("progress", zap.Int64("done", p), zap.Int("total", total),
						zap.String("rate", fmt.Sprintf("%.1f files/sec", rate)))
				}
			}
		}
	}()

	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = process(ctx, files[idx], fn, log)
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	wg.Wait()
	close(done)

	log.Info("batch finished", zap.Int("files", total), zap.Duration("elapsed", time.Since(start)))
	return results
}

func process(ctx context.Context, path string, fn Func, log *zap.Logger) (res Result) {
	res.Path = path
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			log.Error("conversion failed", zap.String("file", path), zap.Error(res.Err))
			return
		}
		log.Debug("converted", zap.String("file", path), zap.Duration("elapsed", res.Duration))
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Err = fn(ctx, path)
	return res
}

// Discover globs pattern under root and keeps the files whose base name
// contains any of filters. An empty filter list keeps everything. The result
// is sorted.
func Discover(root, pattern string, filters []string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		if keep(filepath.Base(m), filters) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func keep(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}
