package annotate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/variant"
)

// LookupProvider serves scores from an indexed local TSV keyed by variant and
// transcript. The file loads once, lazily; rows are
// chrom<TAB>pos<TAB>ref<TAB>alt<TAB>transcript<TAB>score with an optional
// leading '#' header.
type LookupProvider struct {
	ToolName string // e.g. "revel"
	Path     string

	once    sync.Once
	loadErr error
	scores  map[string]float64
}

// Name implements Provider.
func (p *LookupProvider) Name() string { return p.ToolName }

// Score implements Provider. The transcript identifier is part of the lookup
// key; a row without one cannot be resolved by this provider.
func (p *LookupProvider) Score(_ context.Context, key variant.Key, transcript string) (float64, error) {
	p.once.Do(p.load)
	if p.loadErr != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: p.loadErr}
	}
	if transcript == "" {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("transcript required for %s", key)}
	}
	score, ok := p.scores[key.String()+"|"+transcript]
	if !ok {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("no score for %s (%s)", key, transcript)}
	}
	return score, nil
}

func (p *LookupProvider) load() {
	f, err := os.Open(p.Path)
	if err != nil {
		p.loadErr = fmt.Errorf("open score index: %w", err)
		return
	}
	defer f.Close()

	p.scores = make(map[string]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 6 {
			continue
		}
		pos, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			continue
		}
		key := variant.Key{Chrom: variant.NormalizeChrom(fields[0]), Pos: pos, Ref: fields[2], Alt: fields[3]}
		p.scores[key.String()+"|"+fields[4]] = score
	}
	if err := scanner.Err(); err != nil {
		p.loadErr = fmt.Errorf("read score index: %w", err)
		p.scores = nil
	}
}
