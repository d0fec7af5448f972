package table

import (
	"testing"

	"github.com/vusplatform/varspace/internal/domain/faults"
)

func TestValidate_WidthMismatch(t *testing.T) {
	tbl := &Table{
		Header: []string{"a", "b"},
		Rows:   []Row{{"1", "2"}, {"short"}},
	}
	err := tbl.Validate("x.csv")
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*faults.ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Row != 1 {
		t.Errorf("expected error at row 1, got %d", ve.Row)
	}
}

func TestValidate_DuplicateColumn(t *testing.T) {
	tbl := &Table{Header: []string{"a", "a"}}
	if tbl.Validate("") == nil {
		t.Error("duplicate column must fail validation")
	}
}

func TestValidate_EmptyColumnName(t *testing.T) {
	tbl := &Table{Header: []string{"a", ""}}
	if tbl.Validate("") == nil {
		t.Error("empty column name must fail validation")
	}
}

func TestCopy_DoesNotAlias(t *testing.T) {
	tbl := &Table{Header: []string{"a"}, Rows: []Row{{"1"}}}
	cp := tbl.Copy()
	cp.Rows[0][0] = "changed"
	if tbl.Rows[0][0] != "1" {
		t.Error("copy aliases the original rows")
	}
}

func TestAppendColumn(t *testing.T) {
	tbl := &Table{Header: []string{"a"}, Rows: []Row{{"1"}, {"2"}}}
	if err := tbl.AppendColumn("b", []string{"x", "y"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(tbl.Header) != 2 || tbl.Rows[1][1] != "y" {
		t.Errorf("append result wrong: %+v", tbl)
	}
	if err := tbl.AppendColumn("b", []string{"p", "q"}); err == nil {
		t.Error("appending an existing column must fail")
	}
	if err := tbl.AppendColumn("c", []string{"only one"}); err == nil {
		t.Error("value count mismatch must fail")
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		cell string
		want float64
		ok   bool
	}{
		{"3.14", 3.14, true},
		{"  42 ", 42, true},
		{"-1e3", -1000, true},
		{"", 0, false},
		{"12abc", 0, false},
		{"n/a", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.cell)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseNumber(%q) = %v,%v; want %v,%v", c.cell, got, ok, c.want, c.ok)
		}
	}
}
