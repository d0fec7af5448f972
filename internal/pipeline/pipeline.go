// Package pipeline runs ordered multi-step workflows over workspace files,
// such as fetch-then-annotate chains, with explicit readiness checks instead
// of timing assumptions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Downloader fetches an external resource into the workspace and reports the
// path it wrote.
type Downloader interface {
	Fetch(ctx context.Context) (path string, err error)
}

// Stage is one named step of a pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result reports a finished pipeline run.
type Result struct {
	Completed []string `json:"completed"`
	Failed    string   `json:"failed,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// Run executes stages in order. The first failure stops the pipeline; later
// stages are reported as skipped, never attempted.
func Run(ctx context.Context, stages []Stage) *Result {
	result := &Result{}
	for i, stage := range stages {
		started := time.Now()
		if err := stage.Run(ctx); err != nil {
			result.Failed = stage.Name
			result.Err = err.Error()
			for _, rest := range stages[i+1:] {
				result.Skipped = append(result.Skipped, rest.Name)
			}
			slog.Error("pipeline stage failed",
				slog.String("stage", stage.Name),
				slog.Int("skipped", len(result.Skipped)),
				slog.String("error", err.Error()),
			)
			return result
		}
		slog.Info("pipeline stage completed",
			slog.String("stage", stage.Name),
			slog.Duration("elapsed", time.Since(started)),
		)
		result.Completed = append(result.Completed, stage.Name)
	}
	return result
}

// WaitSettled blocks until path exists and its size has stopped changing
// between consecutive polls, or ctx is done. Producers that write in place
// (external downloads) have no completion signal; size stability is the
// readiness criterion.
func WaitSettled(ctx context.Context, path string, poll time.Duration) error {
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	lastSize := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
		info, err := os.Stat(path)
		if err != nil {
			lastSize = -1
			continue
		}
		size := info.Size()
		if size == lastSize {
			return nil
		}
		lastSize = size
	}
}

// FetchStage wraps a Downloader as a pipeline stage that also waits for the
// fetched file to settle on disk.
func FetchStage(name string, d Downloader, poll time.Duration) Stage {
	return Stage{
		Name: name,
		Run: func(ctx context.Context) error {
			path, err := d.Fetch(ctx)
			if err != nil {
				return err
			}
			return WaitSettled(ctx, path, poll)
		},
	}
}
