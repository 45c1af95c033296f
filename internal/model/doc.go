// Package model defines the payload types emitted by the dashboard streams.
//
// Conventions:
//   - Prices and quantities: Amount, fixed-point with 8 decimal places
//     (Binance never sends more precision than that)
//   - Timestamps: time.Time in UTC, converted from exchange milliseconds
//   - Symbols: upper-case exchange symbols (e.g., "BTCUSDT")
package model
