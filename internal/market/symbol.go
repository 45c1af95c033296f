package market

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// QuoteAssets lists the quote assets recognised by SplitSymbol.
// Longer assets must win over their suffixes ("FDUSD" over "USD"), which
// quotePattern guarantees by sorting on length.
var QuoteAssets = []string{
	"USDT", "USDC", "FDUSD", "TUSD", "BUSD", "DAI", "USDP",
	"BTC", "ETH", "BNB", "XRP", "TRX", "DOGE",
	"EUR", "GBP", "TRY", "BRL", "JPY", "AUD", "ARS", "UAH", "ZAR", "PLN", "RON", "MXN", "COP", "IDR",
}

var quotePattern = sync.OnceValue(func() *regexp.Regexp {
	assets := append([]string(nil), QuoteAssets...)
	sort.SliceStable(assets, func(i, j int) bool {
		return len(assets[i]) > len(assets[j])
	})
	for i, a := range assets {
		assets[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile(`^([A-Z0-9]+?)(` + strings.Join(assets, "|") + `)$`)
})

// SplitSymbol splits an exchange symbol into base and quote assets.
// The symbol is upper-cased first. ok is false when no known quote asset
// terminates the symbol or nothing is left for the base.
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	m := quotePattern().FindStringSubmatch(strings.ToUpper(symbol))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// NormalizeSymbol upper-cases and trims a user-entered symbol ("btcusdt " → "BTCUSDT").
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// StreamSymbol returns the lower-case form used in stream names.
func StreamSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
