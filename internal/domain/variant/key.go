package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the normalized identity of a variant: chromosome, position,
// reference allele, alternate allele. It is the join/lookup key across
// heterogeneous source tables.
type Key struct {
	Chrom string
	Pos   int
	Ref   string
	Alt   string
}

// String renders the canonical chrom-pos-ref-alt form, e.g. "6-51234-A-G".
func (k Key) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", k.Chrom, k.Pos, k.Ref, k.Alt)
}

// NormalizeChrom reduces the chromosome spellings seen across sources to the
// bare name: "chr6" → "6", "NC_000006.12" → "6", "0006" → "6".
func NormalizeChrom(raw string) string {
	c := strings.TrimSpace(raw)
	c = strings.TrimPrefix(c, "chr")
	if strings.HasPrefix(c, "NC_") {
		c = strings.TrimPrefix(c, "NC_")
		if dot := strings.IndexByte(c, '.'); dot >= 0 {
			c = c[:dot]
		}
	}
	if trimmed := strings.TrimLeft(c, "0"); trimmed != "" {
		c = trimmed
	}
	return c
}

// Parse reads a canonical "chrom-pos-ref-alt" string back into a Key.
func Parse(s string) (Key, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("malformed variant '%s': want chrom-pos-ref-alt", s)
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("malformed variant '%s': position '%s' is not an integer", s, parts[1])
	}
	k := Key{Chrom: NormalizeChrom(parts[0]), Pos: pos, Ref: parts[2], Alt: parts[3]}
	if k.Chrom == "" || k.Ref == "" || k.Alt == "" {
		return Key{}, fmt.Errorf("malformed variant '%s': empty field", s)
	}
	return k, nil
}
