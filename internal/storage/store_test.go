package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestReplaceThenLoad(t *testing.T) {
	store := createTestStore(t)
	in := &table.Table{
		Header: []string{"gene", "score"},
		Rows:   []table.Row{{"BRCA1", "9"}, {"TP53", "10"}},
	}
	if err := store.Replace("cohort.csv", in); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	out, err := store.Load("cohort.csv")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(out.Rows) != 2 || out.Rows[1][0] != "TP53" {
		t.Errorf("loaded table differs: %+v", out)
	}
}

func TestLoad_NotFound(t *testing.T) {
	store := createTestStore(t)
	_, err := store.Load("missing.csv")
	var nf *faults.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	store := createTestStore(t)
	if err := os.WriteFile(filepath.Join(store.Root, "empty.csv"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := store.Load("empty.csv")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for empty file, got %v", err)
	}
}

func TestLoad_RaggedRows(t *testing.T) {
	store := createTestStore(t)
	raw := "a,b\n1,2\n3\n"
	if err := os.WriteFile(filepath.Join(store.Root, "ragged.csv"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := store.Load("ragged.csv")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Row != 1 {
		t.Errorf("expected row 1 flagged, got %d", ve.Row)
	}
}

func TestResolve_RejectsEscapes(t *testing.T) {
	store := createTestStore(t)
	for _, bad := range []string{"../outside.csv", "/etc/passwd", "a/../../b.csv"} {
		if _, err := store.Resolve(bad); err == nil {
			t.Errorf("Resolve(%q) must fail", bad)
		}
	}
}

func TestList_RelativeSlashIDs(t *testing.T) {
	store := createTestStore(t)
	tbl := &table.Table{Header: []string{"a"}, Rows: []table.Row{{"1"}}}
	if err := store.Replace("sub/dir/one.csv", tbl); err != nil {
		t.Fatal(err)
	}
	if err := store.Replace("two.csv", tbl); err != nil {
		t.Fatal(err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 files, got %v", ids)
	}
	if ids[0] != "sub/dir/one.csv" && ids[1] != "sub/dir/one.csv" {
		t.Errorf("nested id must be slash-relative: %v", ids)
	}
}

func TestCheckTarget(t *testing.T) {
	store := createTestStore(t)
	tbl := &table.Table{Header: []string{"a"}, Rows: nil}
	if err := store.Replace("taken.csv", tbl); err != nil {
		t.Fatal(err)
	}

	var ext *faults.InvalidExtensionError
	if err := store.CheckTarget("report.txt", false); !errors.As(err, &ext) {
		t.Errorf("wrong extension: expected InvalidExtensionError, got %v", err)
	}

	var pc *faults.PathConflictError
	if err := store.CheckTarget("taken.csv", false); !errors.As(err, &pc) {
		t.Errorf("existing target without override: expected PathConflictError, got %v", err)
	}
	if err := store.CheckTarget("taken.csv", true); err != nil {
		t.Errorf("override must allow existing target, got %v", err)
	}
	if err := store.CheckTarget("fresh.csv", false); err != nil {
		t.Errorf("fresh target must pass, got %v", err)
	}
	if err := store.CheckTarget("fresh.CSV", false); err != nil {
		t.Errorf("extension match is case-insensitive, got %v", err)
	}
}

func TestUniqueName(t *testing.T) {
	store := createTestStore(t)
	tbl := &table.Table{Header: []string{"a"}, Rows: nil}
	if err := store.Replace("merge.csv", tbl); err != nil {
		t.Fatal(err)
	}
	if err := store.Replace("merge (1).csv", tbl); err != nil {
		t.Fatal(err)
	}

	if got := store.UniqueName("fresh.csv"); got != "fresh.csv" {
		t.Errorf("free name must stay unchanged, got %q", got)
	}
	if got := store.UniqueName("merge.csv"); got != "merge (2).csv" {
		t.Errorf("expected 'merge (2).csv', got %q", got)
	}
}

func TestDelete(t *testing.T) {
	store := createTestStore(t)
	tbl := &table.Table{Header: []string{"a"}, Rows: nil}
	if err := store.Replace("gone.csv", tbl); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("gone.csv"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var nf *faults.NotFoundError
	if err := store.Delete("gone.csv"); !errors.As(err, &nf) {
		t.Errorf("double delete: expected NotFoundError, got %v", err)
	}
}
