package variant

import (
	"testing"

	"github.com/vusplatform/varspace/internal/domain/table"
)

func TestNormalizeChrom(t *testing.T) {
	cases := map[string]string{
		"chr6":         "6",
		"6":            "6",
		"NC_000006.12": "6",
		"0006":         "6",
		"chrX":         "X",
		" 17 ":         "17",
		"NC_000023.11": "23",
		"0":            "0",
	}
	for raw, want := range cases {
		if got := NormalizeChrom(raw); got != want {
			t.Errorf("NormalizeChrom(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	k := Key{Chrom: "6", Pos: 51234, Ref: "A", Alt: "G"}
	if k.String() != "6-51234-A-G" {
		t.Fatalf("canonical form wrong: %s", k)
	}
	parsed, err := Parse(k.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != k {
		t.Errorf("round trip changed the key: %+v", parsed)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, bad := range []string{"", "6-123-A", "6-abc-A-G", "6-123--G", "a-b-c-d-e"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) must fail", bad)
		}
	}
}

func newKeyedTable() *table.Table {
	return &table.Table{
		Header: []string{"Chromosome", "Position", "Ref", "Alt", "Transcript"},
		Rows: []table.Row{
			{"chr6", "51234", "A", "G", "NM_001.2"},
			{"6", "notanumber", "A", "G", ""},
			{"6", "100", "", "G", ""},
		},
	}
}

func keyMapping() KeyColumns {
	return KeyColumns{Chrom: "Chromosome", Pos: "Position", Ref: "Ref", Alt: "Alt", Transcript: "Transcript"}
}

func TestResolver_Resolve(t *testing.T) {
	r := Resolver{Mapping: keyMapping()}
	tbl := newKeyedTable()

	key, ok := r.Resolve(tbl, 0)
	if !ok {
		t.Fatal("row 0 must resolve")
	}
	if key.String() != "6-51234-A-G" {
		t.Errorf("key wrong: %s", key)
	}
	if tx := r.Transcript(tbl, 0); tx != "NM_001.2" {
		t.Errorf("transcript wrong: %q", tx)
	}

	// bad position and empty allele resolve to nothing, never an error
	if _, ok := r.Resolve(tbl, 1); ok {
		t.Error("non-integer position must not resolve")
	}
	if _, ok := r.Resolve(tbl, 2); ok {
		t.Error("empty ref must not resolve")
	}
}

type shiftLift struct{ delta int }

func (s shiftLift) Translate(_ string, pos int) (int, bool) {
	if pos == 666 {
		return 0, false // deliberately unmapped
	}
	return pos + s.delta, true
}

func TestResolver_Hg19Lift(t *testing.T) {
	mapping := keyMapping()
	mapping.Build = BuildHG19
	tbl := &table.Table{
		Header: []string{"Chromosome", "Position", "Ref", "Alt", "Transcript"},
		Rows: []table.Row{
			{"6", "100", "A", "G", ""},
			{"6", "666", "A", "G", ""},
		},
	}

	r := Resolver{Mapping: mapping, Lift: shiftLift{delta: 7}}
	key, ok := r.Resolve(tbl, 0)
	if !ok || key.Pos != 107 {
		t.Errorf("lifted position wrong: %+v ok=%v", key, ok)
	}
	if _, ok := r.Resolve(tbl, 1); ok {
		t.Error("unmapped position must leave the row unresolved")
	}

	// hg19 without a translator cannot resolve anything
	r = Resolver{Mapping: mapping}
	if _, ok := r.Resolve(tbl, 0); ok {
		t.Error("hg19 mapping with no liftover must not resolve")
	}
}

func TestKeyColumns_Validate(t *testing.T) {
	header := []string{"Chromosome", "Position", "Ref", "Alt", "Transcript"}
	if err := keyMapping().Validate(header); err != nil {
		t.Fatalf("valid mapping rejected: %v", err)
	}

	missing := keyMapping()
	missing.Pos = "Start"
	if err := missing.Validate(header); err == nil {
		t.Error("mapping to an absent column must fail")
	}

	blank := keyMapping()
	blank.Alt = ""
	if err := blank.Validate(header); err == nil {
		t.Error("unconfigured required column must fail")
	}
}
