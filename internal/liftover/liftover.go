// Package liftover translates genome positions between reference builds from
// a precomputed mapping file.
package liftover

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vusplatform/varspace/internal/domain/variant"
)

type position struct {
	chrom string
	pos   int
}

// Map serves build translations from an in-memory table. It implements the
// Translate contract used by key resolution: unmapped positions report
// ok=false and the owning row stays unresolved. The mapping file is
// tab-separated chrom, source position, target position, with optional '#'
// comment lines; chain-file arithmetic happens upstream when the file is
// produced, never here.
type Map struct {
	entries map[position]int
}

// Load reads a mapping file into memory.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open liftover map: %w", err)
	}
	defer f.Close()

	m := &Map{entries: make(map[position]int)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("liftover map %s line %d: want chrom<TAB>from<TAB>to", path, lineNo)
		}
		from, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("liftover map %s line %d: bad source position '%s'", path, lineNo, fields[1])
		}
		to, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("liftover map %s line %d: bad target position '%s'", path, lineNo, fields[2])
		}
		m.entries[position{chrom: variant.NormalizeChrom(fields[0]), pos: from}] = to
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read liftover map: %w", err)
	}
	return m, nil
}

// Translate implements the liftover contract over 1-based positions.
func (m *Map) Translate(chrom string, pos int) (int, bool) {
	to, ok := m.entries[position{chrom: variant.NormalizeChrom(chrom), pos: pos}]
	return to, ok
}

// Len reports the number of loaded mappings.
func (m *Map) Len() int { return len(m.entries) }
