package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
	"github.com/vusplatform/varspace/internal/domain/variant"
)

// NoScore marks a row the provider could not score. Rows carry it instead of
// failing the run: a missing key, an unknown variant, or a transient provider
// outage degrades that row only.
const NoScore = "NA"

// ApplyResult reports one completed annotation run.
type ApplyResult struct {
	File       string `json:"file"`
	Tool       string `json:"tool"`
	Rows       int    `json:"rows"`
	Resolved   int    `json:"resolved"`
	Unresolved int    `json:"unresolved"`
}

// ApplyAnnotation scores every row of sourceFileID with the named tool and
// writes the result, with a trailing "<tool>_score" column, to savePath. Row
// order and existing columns are preserved. Keys come from the leading
// variant column when the source is a merge product, otherwise from the
// role's configured key-column mapping. Duplicate keys are scored once per
// run. A systemic provider failure aborts the run without writing; per-row
// failures leave the NA sentinel and the run completes.
func (e *Engine) ApplyAnnotation(ctx context.Context, savePath, tool, sourceFileID string, role variant.Role, override bool) (*ApplyResult, error) {
	op := e.beginOp("apply:"+tool, savePath, sourceFileID)

	result, err := e.applyAnnotation(ctx, savePath, tool, sourceFileID, role, override)
	rows := 0
	if result != nil {
		rows = result.Rows
	}
	op.finish(rows, err)
	return result, err
}

func (e *Engine) applyAnnotation(ctx context.Context, savePath, tool, sourceFileID string, role variant.Role, override bool) (*ApplyResult, error) {
	provider, ok := e.providers[tool]
	if !ok {
		return nil, &faults.ValidationError{Path: savePath, Row: -1,
			Reason: fmt.Sprintf("no annotation provider registered for '%s'", tool)}
	}
	if err := e.store.CheckTarget(savePath, override); err != nil {
		return nil, err
	}

	release, err := e.locks.AcquireWrite(savePath)
	if err != nil {
		return nil, err
	}
	defer release()

	// re-check under the lock: a concurrent operation may have created the
	// target between the first check and acquisition
	if err := e.store.CheckTarget(savePath, override); err != nil {
		return nil, err
	}

	t, err := e.snapshotSource(savePath, sourceFileID)
	if err != nil {
		return nil, err
	}

	keyOf, transcriptOf, err := e.keyReader(t, sourceFileID, role)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{File: savePath, Tool: tool, Rows: len(t.Rows)}
	scores := make([]string, len(t.Rows))
	cached := make(map[string]string, len(t.Rows))
	var warnings error

	for i := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key, ok := keyOf(i)
		if !ok {
			scores[i] = NoScore
			result.Unresolved++
			continue
		}
		transcript := transcriptOf(i)
		cacheKey := key.String() + "|" + transcript
		if score, hit := cached[cacheKey]; hit {
			scores[i] = score
			if score == NoScore {
				result.Unresolved++
			} else {
				result.Resolved++
			}
			continue
		}

		value, err := provider.Score(ctx, key, transcript)
		if err != nil {
			if faults.IsSystemic(err) {
				return nil, err
			}
			warnings = multierror.Append(warnings, fmt.Errorf("row %d (%s): %w", i, key, err))
			scores[i] = NoScore
			cached[cacheKey] = NoScore
			result.Unresolved++
			continue
		}
		scores[i] = strconv.FormatFloat(value, 'f', -1, 64)
		cached[cacheKey] = scores[i]
		result.Resolved++
	}

	scoreColumn := tool + "_score"
	if col := t.ColumnIndex(scoreColumn); col >= 0 {
		// re-running the same tool refreshes its column in place
		for i := range t.Rows {
			t.Rows[i][col] = scores[i]
		}
	} else if err := t.AppendColumn(scoreColumn, scores); err != nil {
		return nil, err
	}

	if err := e.store.Replace(savePath, t); err != nil {
		return nil, err
	}
	if warnings != nil {
		slog.Warn("annotation run completed with unscored rows",
			slog.String("tool", tool),
			slog.String("target", savePath),
			slog.Int("unresolved", result.Unresolved),
			slog.String("detail", warnings.Error()),
		)
	}
	slog.Info("annotation applied",
		slog.String("tool", tool),
		slog.String("source", sourceFileID),
		slog.String("target", savePath),
		slog.Int("resolved", result.Resolved),
		slog.Int("unresolved", result.Unresolved),
	)
	return result, nil
}

// snapshotSource loads the annotation input. When source and target differ the
// source is read under its own lock; when they are the same path the held
// write lock already covers it.
func (e *Engine) snapshotSource(savePath, sourceFileID string) (*table.Table, error) {
	if sourceFileID == savePath {
		return e.store.Load(sourceFileID)
	}
	release := e.locks.AcquireRead(sourceFileID)
	defer release()
	return e.store.Load(sourceFileID)
}

// keyReader returns per-row accessors for variant key and transcript. A table
// carrying the canonical variant column, the shape merge produces, is keyed
// directly from it; anything else needs a role with a configured mapping.
func (e *Engine) keyReader(t *table.Table, sourceFileID string, role variant.Role) (func(int) (variant.Key, bool), func(int) string, error) {
	if t.ColumnIndex(KeyColumn) >= 0 {
		keyOf := func(row int) (variant.Key, bool) {
			cell, ok := t.Cell(row, KeyColumn)
			if !ok {
				return variant.Key{}, false
			}
			key, err := variant.Parse(cell)
			if err != nil {
				return variant.Key{}, false
			}
			return key, true
		}
		transcriptOf := func(int) string { return "" }
		return keyOf, transcriptOf, nil
	}

	resolver, ok := e.resolverFor(role)
	if !ok {
		return nil, nil, &faults.ValidationError{Path: sourceFileID, Row: -1,
			Reason: fmt.Sprintf("no key-column mapping configured for role '%s'", role)}
	}
	if err := resolver.Mapping.Validate(t.Header); err != nil {
		return nil, nil, &faults.ValidationError{Path: sourceFileID, Row: -1, Reason: err.Error()}
	}
	keyOf := func(row int) (variant.Key, bool) { return resolver.Resolve(t, row) }
	transcriptOf := func(row int) string { return resolver.Transcript(t, row) }
	return keyOf, transcriptOf, nil
}
