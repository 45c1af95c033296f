// Package api provides the Binance REST client used by the dashboard streams.
//
// REST endpoints:
//   - Production: https://api.binance.com
//   - Testnet: https://testnet.binance.vision
//
// Only the calls the streams depend on are implemented: listen-key creation
// for the user data stream, signed account balances, and connectivity checks.
package api
