package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/httpclient"
)

// DefaultClient returns the client providers use when none is injected.
func DefaultClient() httpclient.Doer {
	return &http.Client{Timeout: 10 * time.Second}
}

// GetJSON issues a GET request and decodes a JSON body into out.
// Network failures are reported as core.ErrTransport; non-2xx statuses and
// undecodable bodies as *core.ProviderError.
func GetJSON(ctx context.Context, client httpclient.Doer, provider, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrTransport, fmt.Errorf("%s: %w", provider, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.NewProviderError(provider, resp.StatusCode, "")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewProviderError(provider, resp.StatusCode, fmt.Sprintf("decoding response: %v", err))
	}
	return nil
}
