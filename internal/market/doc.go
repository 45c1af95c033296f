// Package market holds exchange symbol metadata.
//
// Binance symbols concatenate base and quote assets without a separator
// ("ETHBTC", "BNBUSDT"). SplitSymbol recovers the two halves using a fixed
// table of quote assets, compiled once on first use and read-only after.
// The stream codecs rely on it alone.
//
// Registry mirrors the exchange listing from the exchangeInfo endpoint and
// is used to check that a symbol is open for trading before a stream is
// switched to it.
package market
