// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection attempts, connects and disconnects per stream
//   - Resolve and dial failures
//   - Inbound frames, forwarded messages and dropped frames
//   - Connected state per stream
//   - REST balance refreshes
//
// A nil *Collector is valid and records nothing.
package metrics
