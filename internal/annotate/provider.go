// Package annotate holds the Annotation Provider contract and the concrete
// adapters that turn a variant (and optionally a transcript) into a
// pathogenicity score.
package annotate

import (
	"context"

	"github.com/vusplatform/varspace/internal/domain/variant"
)

// Provider scores a single variant. Implementations are external
// capabilities: a model-inference run, a remote lookup service, or an indexed
// local database. The apply engine never branches on which one it holds.
//
// Failures are reported as *faults.ProviderError: transient unavailability is
// recovered per row by the caller, a systemic (configuration/auth class)
// failure aborts the whole run.
type Provider interface {
	Name() string
	Score(ctx context.Context, key variant.Key, transcript string) (float64, error)
}
