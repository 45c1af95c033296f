// Package account subscribes to the user data stream and keeps a merged
// view of asset balances.
//
// Resolving the stream exchanges the API key for a listen key over REST.
// Failed exchanges are ordinary resolution errors and are retried by the
// engine. Listen key keepalive is not performed; an expired key ends the
// connection and the next attempt obtains a fresh one.
//
// Balances reach the Ledger from two shapes: REST account snapshots and
// outboundAccountPosition events. Each has its own validated mapper into
// model.Balance.
package account
