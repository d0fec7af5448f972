package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
	"github.com/vusplatform/varspace/internal/domain/variant"
)

func mergeSchema() *variant.SchemaFile {
	return &variant.SchemaFile{Sources: map[variant.Role]variant.KeyColumns{
		variant.RolePrimary:   {Chrom: "Chromosome", Pos: "Position", Ref: "Ref", Alt: "Alt"},
		variant.RoleSecondary: {Chrom: "chrom", Pos: "pos", Ref: "ref", Alt: "alt"},
		variant.RoleTertiary:  {Chrom: "CHR", Pos: "POS", Ref: "REF", Alt: "ALT"},
	}}
}

func primaryTable() *table.Table {
	return &table.Table{
		Header: []string{"Chromosome", "Position", "Ref", "Alt", "class"},
		Rows: []table.Row{
			{"chr6", "100", "A", "G", "vus"},
			{"chr7", "200", "C", "T", "benign"},
			{"6", "bogus", "A", "G", "unkeyable"},
		},
	}
}

func secondaryTable() *table.Table {
	return &table.Table{
		Header: []string{"chrom", "pos", "ref", "alt", "freq"},
		Rows: []table.Row{
			{"6", "100", "A", "G", "0.01"},
			{"9", "300", "G", "A", "0.5"},
		},
	}
}

func TestMergePair(t *testing.T) {
	e := createTestEngine(t, WithSchema(mergeSchema()))
	seedTable(t, e, "primary.csv", primaryTable())
	seedTable(t, e, "secondary.csv", secondaryTable())

	result, err := e.MergePair(context.Background(), "merged.csv", "primary.csv", "secondary.csv", false)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if result.Keys != 3 {
		t.Errorf("key union: got %d want 3", result.Keys)
	}
	if result.Skipped != 1 {
		t.Errorf("unkeyable rows skipped: got %d want 1", result.Skipped)
	}

	merged, err := e.store.Load("merged.csv")
	if err != nil {
		t.Fatal(err)
	}

	wantHeader := []string{
		"variant",
		"primary.Chromosome", "primary.Position", "primary.Ref", "primary.Alt", "primary.class",
		"secondary.chrom", "secondary.pos", "secondary.ref", "secondary.alt", "secondary.freq",
	}
	if len(merged.Header) != len(wantHeader) {
		t.Fatalf("header width: got %v", merged.Header)
	}
	for i, col := range wantHeader {
		if merged.Header[i] != col {
			t.Fatalf("header[%d]: got %q want %q", i, merged.Header[i], col)
		}
	}

	// primary keys first in file order, then secondary-only keys
	if merged.Rows[0][0] != "6-100-A-G" || merged.Rows[1][0] != "7-200-C-T" || merged.Rows[2][0] != "9-300-G-A" {
		t.Errorf("key order wrong: %v %v %v", merged.Rows[0][0], merged.Rows[1][0], merged.Rows[2][0])
	}

	// shared key carries both blocks
	if merged.Rows[0][5] != "vus" || merged.Rows[0][10] != "0.01" {
		t.Errorf("shared key row incomplete: %v", merged.Rows[0])
	}
	// primary-only key has an empty secondary block
	for _, cell := range merged.Rows[1][6:] {
		if cell != "" {
			t.Errorf("secondary block must be empty for primary-only key: %v", merged.Rows[1])
			break
		}
	}
	// secondary-only key has an empty primary block
	for _, cell := range merged.Rows[2][1:6] {
		if cell != "" {
			t.Errorf("primary block must be empty for secondary-only key: %v", merged.Rows[2])
			break
		}
	}
}

func TestMerge_DuplicateKeysFirstWins(t *testing.T) {
	e := createTestEngine(t, WithSchema(mergeSchema()))
	dup := primaryTable()
	dup.Rows = append(dup.Rows, table.Row{"6", "100", "A", "G", "duplicate"})
	seedTable(t, e, "primary.csv", dup)
	seedTable(t, e, "secondary.csv", secondaryTable())

	result, err := e.MergePair(context.Background(), "merged.csv", "primary.csv", "secondary.csv", false)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if result.Keys != 3 {
		t.Errorf("duplicate key must not add a row: got %d keys", result.Keys)
	}

	merged, _ := e.store.Load("merged.csv")
	if merged.Rows[0][5] != "vus" {
		t.Errorf("first occurrence must win, got %q", merged.Rows[0][5])
	}
}

func TestMerge_TargetConflictAndOverride(t *testing.T) {
	e := createTestEngine(t, WithSchema(mergeSchema()))
	seedTable(t, e, "primary.csv", primaryTable())
	seedTable(t, e, "secondary.csv", secondaryTable())
	seedTable(t, e, "merged.csv", &table.Table{Header: []string{"old"}, Rows: nil})

	_, err := e.MergePair(context.Background(), "merged.csv", "primary.csv", "secondary.csv", false)
	var pc *faults.PathConflictError
	if !errors.As(err, &pc) {
		t.Fatalf("existing target without override: expected PathConflictError, got %v", err)
	}

	if _, err := e.MergePair(context.Background(), "merged.csv", "primary.csv", "secondary.csv", true); err != nil {
		t.Fatalf("override must replace the target: %v", err)
	}
}

func TestMerge_TargetIsAlsoSource(t *testing.T) {
	e := createTestEngine(t, WithSchema(mergeSchema()))
	seedTable(t, e, "primary.csv", primaryTable())
	seedTable(t, e, "secondary.csv", secondaryTable())

	type outcome struct {
		result *MergeResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := e.MergePair(context.Background(), "primary.csv", "primary.csv", "secondary.csv", true)
		done <- outcome{r, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("merging into one of its own sources failed: %v", out.err)
		}
		if out.result.Keys != 3 {
			t.Errorf("key union: got %d want 3", out.result.Keys)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("merging into one of its own sources never returned")
	}

	merged, err := e.store.Load("primary.csv")
	if err != nil {
		t.Fatal(err)
	}
	if merged.Header[0] != KeyColumn {
		t.Errorf("target not replaced by the merge product: %v", merged.Header)
	}

	// the target lock must be free again
	release, err := e.locks.AcquireWrite("primary.csv")
	if err != nil {
		t.Fatalf("target lock still held after the merge: %v", err)
	}
	release()
}

func TestMerge_RejectsBadInput(t *testing.T) {
	e := createTestEngine(t, WithSchema(mergeSchema()))
	seedTable(t, e, "primary.csv", primaryTable())

	var ve *faults.ValidationError
	_, err := e.MergeSources(context.Background(), "out.csv",
		map[variant.Role]string{variant.RolePrimary: "primary.csv"}, false)
	if !errors.As(err, &ve) {
		t.Errorf("single source: expected ValidationError, got %v", err)
	}

	_, err = e.MergeSources(context.Background(), "out.csv",
		map[variant.Role]string{variant.RolePrimary: "primary.csv", variant.Role("extra"): "primary.csv"}, false)
	if !errors.As(err, &ve) {
		t.Errorf("unknown role: expected ValidationError, got %v", err)
	}

	// secondary mapping names columns the primary file does not have
	_, err = e.MergeSources(context.Background(), "out.csv",
		map[variant.Role]string{variant.RolePrimary: "primary.csv", variant.RoleSecondary: "primary.csv"}, false)
	if !errors.As(err, &ve) {
		t.Errorf("mapping/header mismatch: expected ValidationError, got %v", err)
	}

	var ext *faults.InvalidExtensionError
	_, err = e.MergeSources(context.Background(), "out.txt",
		map[variant.Role]string{variant.RolePrimary: "primary.csv", variant.RoleSecondary: "primary.csv"}, false)
	if !errors.As(err, &ext) {
		t.Errorf("bad extension: expected InvalidExtensionError, got %v", err)
	}
}

func TestMerge_SourceEditsDoNotLeak(t *testing.T) {
	e := createTestEngine(t, WithSchema(mergeSchema()))
	seedTable(t, e, "primary.csv", primaryTable())
	seedTable(t, e, "secondary.csv", secondaryTable())

	if _, err := e.MergePair(context.Background(), "merged.csv", "primary.csv", "secondary.csv", false); err != nil {
		t.Fatal(err)
	}
	before, _ := e.store.Load("merged.csv")

	// edits to a source after the merge never appear in the existing product
	src, _ := e.store.Load("primary.csv")
	src.Rows[0][4] = "changed"
	seedTable(t, e, "primary.csv", src)

	after, _ := e.store.Load("merged.csv")
	if before.Rows[0][5] != after.Rows[0][5] {
		t.Error("merge product changed when a source was edited")
	}
}
