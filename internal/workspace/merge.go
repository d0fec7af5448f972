package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
	"github.com/vusplatform/varspace/internal/domain/variant"
)

// KeyColumn is the leading output column carrying each row's canonical
// variant identity.
const KeyColumn = "variant"

// MergeResult reports one completed merge.
type MergeResult struct {
	File       string               `json:"file"`
	Keys       int                  `json:"keys"`
	Skipped    int                  `json:"skipped"` // source rows whose key could not be resolved
	SourceRows map[variant.Role]int `json:"sourceRows"`
}

type mergeSource struct {
	role     variant.Role
	fileID   string
	snapshot *table.Table
	resolver variant.Resolver
}

// MergeSources outer-joins 2–4 source tables by variant identity into a new
// file at savePath. The output row set is the ordered union of keys,
// first-seen order iterating sources in role priority; each output row holds
// one namespaced column block per source, empty where a source did not
// contribute the key. Sources are snapshotted at start, so edits landing
// mid-merge never leak into the result. The target is locked for the whole
// run; a second merge on the same path observes Busy.
func (e *Engine) MergeSources(ctx context.Context, savePath string, sources map[variant.Role]string, override bool) (*MergeResult, error) {
	sourceIDs := make([]string, 0, len(sources))
	for _, id := range sources {
		sourceIDs = append(sourceIDs, id)
	}
	op := e.beginOp("merge", savePath, sourceIDs...)

	result, err := e.mergeSources(ctx, savePath, sources, override)
	rows := 0
	if result != nil {
		rows = result.Keys
	}
	op.finish(rows, err)
	return result, err
}

func (e *Engine) mergeSources(ctx context.Context, savePath string, sources map[variant.Role]string, override bool) (*MergeResult, error) {
	if len(sources) < 2 || len(sources) > len(variant.RolePriority) {
		return nil, &faults.ValidationError{Path: savePath, Row: -1,
			Reason: fmt.Sprintf("merge needs 2-%d sources, got %d", len(variant.RolePriority), len(sources))}
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

	ordered := make([]*mergeSource, 0, len(sources))
	for _, role := range variant.RolePriority {
		fileID, ok := sources[role]
		if !ok {
			continue
		}
		resolver, ok := e.resolverFor(role)
		if !ok {
			return nil, &faults.ValidationError{Path: savePath, Row: -1,
				Reason: fmt.Sprintf("no key-column mapping configured for role '%s'", role)}
		}
		ordered = append(ordered, &mergeSource{role: role, fileID: fileID, resolver: resolver})
	}
	if len(ordered) != len(sources) {
		return nil, &faults.ValidationError{Path: savePath, Row: -1, Reason: "merge sources contain an unknown role"}
	}

	// snapshot every source up front, concurrently
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, src := range ordered {
		g.Go(func() error {
			// a source at the target path is already covered by the held
			// write lock; taking its read lock here would block forever
			if src.fileID != savePath {
				rel := e.locks.AcquireRead(src.fileID)
				defer rel()
			}
			t, err := e.store.Load(src.fileID)
			if err != nil {
				return err
			}
			if err := src.resolver.Mapping.Validate(t.Header); err != nil {
				return &faults.ValidationError{Path: src.fileID, Row: -1, Reason: err.Error()}
			}
			mu.Lock()
			src.snapshot = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, result := buildMerge(ordered)
	result.File = savePath

	if err := e.store.Replace(savePath, merged); err != nil {
		return nil, err
	}
	slog.Info("merge completed",
		slog.String("target", savePath),
		slog.Int("sources", len(ordered)),
		slog.Int("keys", result.Keys),
		slog.Int("skipped_rows", result.Skipped),
	)
	return result, nil
}

// buildMerge computes the key union and assembles the output table from
// already-snapshotted sources.
func buildMerge(ordered []*mergeSource) (*table.Table, *MergeResult) {
	result := &MergeResult{SourceRows: make(map[variant.Role]int, len(ordered))}

	// per-source key index; duplicate keys within one source keep their
	// first row, which makes merging a source with itself a no-op union
	type sourceIndex struct {
		src  *mergeSource
		rows map[string]int
	}
	indexes := make([]sourceIndex, len(ordered))
	var keyOrder []string
	seen := make(map[string]struct{})

	for i, src := range ordered {
		idx := sourceIndex{src: src, rows: make(map[string]int, len(src.snapshot.Rows))}
		for rowID := range src.snapshot.Rows {
			key, ok := src.resolver.Resolve(src.snapshot, rowID)
			if !ok {
				result.Skipped++
				continue
			}
			ks := key.String()
			if _, dup := idx.rows[ks]; !dup {
				idx.rows[ks] = rowID
			}
			if _, known := seen[ks]; !known {
				seen[ks] = struct{}{}
				keyOrder = append(keyOrder, ks)
			}
		}
		indexes[i] = idx
		result.SourceRows[src.role] = len(src.snapshot.Rows)
	}

	header := []string{KeyColumn}
	for _, src := range ordered {
		for _, col := range src.snapshot.Header {
			header = append(header, string(src.role)+"."+col)
		}
	}

	rows := make([]table.Row, len(keyOrder))
	for i, ks := range keyOrder {
		row := make(table.Row, 0, len(header))
		row = append(row, ks)
		for _, idx := range indexes {
			if rowID, ok := idx.rows[ks]; ok {
				row = append(row, idx.src.snapshot.Rows[rowID]...)
			} else {
				row = append(row, make(table.Row, len(idx.src.snapshot.Header))...)
			}
		}
		rows[i] = row
	}

	result.Keys = len(keyOrder)
	return &table.Table{Header: header, Rows: rows}, result
}

// MergePair is the two-source preset: primary joined with secondary.
func (e *Engine) MergePair(ctx context.Context, savePath, primary, secondary string, override bool) (*MergeResult, error) {
	return e.MergeSources(ctx, savePath, map[variant.Role]string{
		variant.RolePrimary:   primary,
		variant.RoleSecondary: secondary,
	}, override)
}

// MergeAll is the full four-way preset over every role.
func (e *Engine) MergeAll(ctx context.Context, savePath, primary, secondary, tertiary, custom string, override bool) (*MergeResult, error) {
	return e.MergeSources(ctx, savePath, map[variant.Role]string{
		variant.RolePrimary:   primary,
		variant.RoleSecondary: secondary,
		variant.RoleTertiary:  tertiary,
		variant.RoleCustom:    custom,
	}, override)
}
