package variant

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vusplatform/varspace/internal/domain/table"
)

// Role names a source's position in a merge. Priority order is fixed:
// primary, secondary, tertiary, custom.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleTertiary  Role = "tertiary"
	RoleCustom    Role = "custom"
)

// RolePriority lists all roles in their merge priority order.
var RolePriority = []Role{RolePrimary, RoleSecondary, RoleTertiary, RoleCustom}

// Build identifies the genome reference build a source's coordinates use.
type Build string

const (
	BuildHG38 Build = "hg38"
	BuildHG19 Build = "hg19"
)

// KeyColumns is the per-source column mapping used to derive a variant Key.
// Schemas differ across sources and are never autodetected; each role's
// mapping is explicit configuration.
type KeyColumns struct {
	Chrom      string `yaml:"chrom"`
	Pos        string `yaml:"pos"`
	Ref        string `yaml:"ref"`
	Alt        string `yaml:"alt"`
	Transcript string `yaml:"transcript,omitempty"` // optional, needed by lookup-keyed tools
	Build      Build  `yaml:"build,omitempty"`      // defaults to hg38
}

// Validate checks the mapping names columns actually present in the header.
func (kc KeyColumns) Validate(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[col] = struct{}{}
	}
	for _, want := range []struct{ label, col string }{
		{"chrom", kc.Chrom}, {"pos", kc.Pos}, {"ref", kc.Ref}, {"alt", kc.Alt},
	} {
		if want.col == "" {
			return fmt.Errorf("key mapping: %s column not configured", want.label)
		}
		if _, ok := present[want.col]; !ok {
			return fmt.Errorf("key mapping: %s column '%s' not in table header", want.label, want.col)
		}
	}
	if kc.Transcript != "" {
		if _, ok := present[kc.Transcript]; !ok {
			return fmt.Errorf("key mapping: transcript column '%s' not in table header", kc.Transcript)
		}
	}
	return nil
}

// Liftover translates a position from an older reference build to the current
// one. Implementations are external; Unmapped positions are reported via ok.
type Liftover interface {
	Translate(chrom string, hg19Pos int) (hg38Pos int, ok bool)
}

// Resolver derives Keys from table rows using a KeyColumns mapping, lifting
// hg19 coordinates when the mapping says so.
type Resolver struct {
	Mapping KeyColumns
	Lift    Liftover // required only when Mapping.Build is hg19
}

// Resolve derives the Key for one row of t. ok is false when the key cannot
// be resolved: missing cells, non-integer position, or a failed coordinate
// translation. Callers treat such rows as unresolved, never as errors.
func (r Resolver) Resolve(t *table.Table, row int) (Key, bool) {
	chrom, okC := t.Cell(row, r.Mapping.Chrom)
	posText, okP := t.Cell(row, r.Mapping.Pos)
	ref, okR := t.Cell(row, r.Mapping.Ref)
	alt, okA := t.Cell(row, r.Mapping.Alt)
	if !okC || !okP || !okR || !okA {
		return Key{}, false
	}
	chrom = NormalizeChrom(chrom)
	ref = strings.TrimSpace(ref)
	alt = strings.TrimSpace(alt)
	if chrom == "" || ref == "" || alt == "" {
		return Key{}, false
	}
	pos, err := strconv.Atoi(strings.TrimSpace(posText))
	if err != nil || pos <= 0 {
		return Key{}, false
	}
	if r.Mapping.Build == BuildHG19 {
		if r.Lift == nil {
			return Key{}, false
		}
		lifted, ok := r.Lift.Translate(chrom, pos)
		if !ok {
			return Key{}, false
		}
		pos = lifted
	}
	return Key{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt}, true
}

// Transcript returns the row's transcript identifier, or "" when the mapping
// has no transcript column or the cell is empty.
func (r Resolver) Transcript(t *table.Table, row int) string {
	if r.Mapping.Transcript == "" {
		return ""
	}
	tx, _ := t.Cell(row, r.Mapping.Transcript)
	return strings.TrimSpace(tx)
}

// SchemaFile is the on-disk per-role mapping configuration.
type SchemaFile struct {
	Sources map[Role]KeyColumns `yaml:"sources"`
}

// LoadSchemaFile reads the role→KeyColumns mapping from a YAML file.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source schema %s: %w", path, err)
	}
	var sf SchemaFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse source schema %s: %w", path, err)
	}
	for role := range sf.Sources {
		switch role {
		case RolePrimary, RoleSecondary, RoleTertiary, RoleCustom:
		default:
			return nil, fmt.Errorf("source schema %s: unknown role '%s'", path, role)
		}
	}
	return &sf, nil
}
