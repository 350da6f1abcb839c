package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/httpclient"
)

// ProviderKind identifies one of the supported market-data backends.
type ProviderKind string

const (
	ProviderBinance       ProviderKind = "binance"
	ProviderCoinGecko     ProviderKind = "coingecko"
	ProviderCryptoCompare ProviderKind = "cryptocompare"
)

// ParseProviderKind validates a provider identifier against the closed set.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch k := ProviderKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ProviderBinance, ProviderCoinGecko, ProviderCryptoCompare:
		return k, nil
	default:
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported API provider: %q", s))
	}
}

// RequiresAPIKey reports whether the provider cannot be used without a key.
func (k ProviderKind) RequiresAPIKey() bool {
	return k == ProviderCryptoCompare
}

// Config holds collector configuration
type Config struct {
	Provider string
	APIKey   string
	// BaseURL overrides the provider endpoint (for testing).
	BaseURL string
	// Client is the outbound transport. Nil uses a plain 10s client.
	Client httpclient.Doer
}

// Observer receives one callback per provider operation.
type Observer interface {
	ObserveProviderCall(provider, operation string, duration time.Duration, err error)
}
