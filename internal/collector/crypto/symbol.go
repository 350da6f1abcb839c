package crypto

import (
	"strings"
)

// QuoteAsset is the quote currency for every pair this service tracks.
const QuoteAsset = "USDT"

// fallbackBase is used when a pair like "/USD" carries no base asset.
const fallbackBase = "BTC"

// nameToTicker resolves well-known full names (and bare tickers) to tickers.
var nameToTicker = map[string]string{
	"BITCOIN":  "BTC",
	"ETHEREUM": "ETH",
	"SOLANA":   "SOL",
	"RIPPLE":   "XRP",
	"XRP":      "XRP",
	"BTC":      "BTC",
	"ETH":      "ETH",
	"SOL":      "SOL",
}

// tickerToName provides display names for the canonical asset set.
var tickerToName = map[string]string{
	"BTC": "Bitcoin",
	"ETH": "Ethereum",
	"SOL": "Solana",
	"XRP": "Ripple",
}

// tickerToCoinGeckoID maps tickers to CoinGecko coin IDs.
var tickerToCoinGeckoID = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"ADA":   "cardano",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"LTC":   "litecoin",
	"ETC":   "ethereum-classic",
	"XLM":   "stellar",
	"ALGO":  "algorand",
	"NEAR":  "near",
	"AAVE":  "aave",
	"ARB":   "arbitrum",
	"OP":    "optimism",
}

// DefaultTickers is the asset set the dashboard tracks when none is configured.
var DefaultTickers = []string{"BTC", "ETH", "SOL", "XRP"}

// BaseTicker extracts the uppercase base asset from any accepted input form:
// "BTC/USD", "btc", "BTCUSDT", "bitcoin". It never fails; an empty base
// before "/" resolves to BTC.
func BaseTicker(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))

	if base, _, found := strings.Cut(s, "/"); found {
		if base == "" {
			return fallbackBase
		}
		s = base
	}

	if ticker, ok := nameToTicker[s]; ok {
		return ticker
	}
	if strings.HasSuffix(s, QuoteAsset) && len(s) > len(QuoteAsset) {
		return strings.TrimSuffix(s, QuoteAsset)
	}
	return s
}

// ToBinanceSymbol converts user input to a Binance pair, e.g. "BTC/USD" ->
// "BTCUSDT". Names outside the fixed table are not resolved: "cardano"
// becomes "CARDANOUSDT". Input already ending in USDT is returned uppercased.
func ToBinanceSymbol(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	if !strings.Contains(s, "/") {
		if _, known := nameToTicker[s]; !known && strings.HasSuffix(s, QuoteAsset) {
			return s
		}
	}
	return BaseTicker(s) + QuoteAsset
}

// ToCoinGeckoID converts user input to a CoinGecko coin ID. Unknown tickers
// map to their lowercase form.
func ToCoinGeckoID(input string) string {
	base := BaseTicker(input)
	if id, ok := tickerToCoinGeckoID[base]; ok {
		return id
	}
	return strings.ToLower(base)
}

// ToCryptoCompareSymbol converts user input to a CryptoCompare "fsym".
func ToCryptoCompareSymbol(input string) string {
	return BaseTicker(input)
}

// CanonicalSymbol renders any accepted input as BASE/USD.
func CanonicalSymbol(input string) string {
	return BaseTicker(input) + "/USD"
}

// DisplayName returns the human-readable asset name, or fallback when the
// asset is not in the name table.
func DisplayName(input, fallback string) string {
	if name, ok := tickerToName[BaseTicker(input)]; ok {
		return name
	}
	return fallback
}
