package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/variant"
)

// RemoteProvider scores variants through a remote scoring service, one HTTP
// lookup per variant. Non-2xx responses are transient unavailability except
// for the auth/config class, which is systemic and aborts the run.
type RemoteProvider struct {
	ToolName string // e.g. "cadd"
	Endpoint string // base URL; the key is appended as /{chrom}-{pos}-{ref}-{alt}
	Client   *http.Client
}

// Name implements Provider.
func (p *RemoteProvider) Name() string { return p.ToolName }

// Score implements Provider.
func (p *RemoteProvider) Score(ctx context.Context, key variant.Key, _ string) (float64, error) {
	if p.Endpoint == "" {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: fmt.Errorf("endpoint not configured")}
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	url := fmt.Sprintf("%s/%s", p.Endpoint, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, &faults.ProviderError{Tool: p.Name(), Systemic: true, Err: fmt.Errorf("service rejected credentials: %s", resp.Status)}
	case resp.StatusCode == http.StatusNotFound:
		// the service knows nothing about this variant
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("no score for %s", key)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var body struct {
		Phred float64 `json:"phred"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, &faults.ProviderError{Tool: p.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	return body.Phred, nil
}
