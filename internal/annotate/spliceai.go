package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/variant"
)

const vcfHeader = "##fileformat=VCFv4.2\n" +
	"##reference=GRCh38\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

// SpliceProvider runs a splice-effect prediction command over a VCF round
// trip: write the variant as a one-record VCF, execute the model, read the
// annotated VCF back and report the maximum delta score.
type SpliceProvider struct {
	Command    string // executable, e.g. "spliceai"
	Fasta      string // reference genome path, passed to -R
	Annotation string // gene annotation name, passed to -A (default grch38)
	WorkDir    string // scratch directory for the VCF pair
}

// Name implements Provider.
func (p *SpliceProvider) Name() string { return "spliceai" }

// Score implements Provider.
func (p *SpliceProvider) Score(ctx context.Context, key variant.Key, _ string) (float64, error) {
	if p.Command == "" {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: fmt.Errorf("command not configured")}
	}
	if _, err := os.Stat(p.Fasta); err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: fmt.Errorf("reference fasta: %w", err)}
	}

	dir, err := os.MkdirTemp(p.WorkDir, "splice-*")
	if err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: err}
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.vcf")
	output := filepath.Join(dir, "output.vcf")
	record := fmt.Sprintf("%s\t%d\t.\t%s\t%s\t.\t.\t.\n", key.Chrom, key.Pos, key.Ref, key.Alt)
	if err := os.WriteFile(input, []byte(vcfHeader+record), 0o644); err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: err}
	}

	annotation := p.Annotation
	if annotation == "" {
		annotation = "grch38"
	}
	started := time.Now()
	cmd := exec.CommandContext(ctx, p.Command,
		"-I", input,
		"-O", output,
		"-R", p.Fasta,
		"-A", annotation,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("run failed: %v: %s", err, strings.TrimSpace(string(out)))}
	}
	slog.Debug("splice model run finished",
		slog.String("variant", key.String()),
		slog.Duration("elapsed", time.Since(started)),
	)

	score, ok, err := parseSpliceVCF(output, key)
	if err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: err}
	}
	if !ok {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("no score for %s", key)}
	}
	return score, nil
}

// parseSpliceVCF extracts the maximum delta score for key from an annotated
// VCF. The INFO field carries "SpliceAI=ALT|GENE|ds_ag|ds_al|ds_dg|ds_dl|…";
// the four delta scores are fields 2–5.
func parseSpliceVCF(path string, key variant.Key) (float64, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("read annotated vcf: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 8 {
			continue
		}
		pos, err := strconv.Atoi(cols[1])
		if err != nil || variant.NormalizeChrom(cols[0]) != key.Chrom || pos != key.Pos ||
			cols[3] != key.Ref || cols[4] != key.Alt {
			continue
		}
		for _, part := range strings.Split(cols[7], ";") {
			if !strings.HasPrefix(part, "SpliceAI=") {
				continue
			}
			fields := strings.Split(strings.TrimPrefix(part, "SpliceAI="), "|")
			if len(fields) < 6 {
				return 0, false, fmt.Errorf("short annotation '%s'", part)
			}
			max := 0.0
			valid := false
			for _, f := range fields[2:6] {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					continue
				}
				valid = true
				if v > max {
					max = v
				}
			}
			if !valid {
				return 0, false, nil
			}
			return max, true, nil
		}
	}
	return 0, false, nil
}
