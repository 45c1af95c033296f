// Package poller implements the Balance Poller component.
//
// The Balance Poller:
//   - Fetches the signed account endpoint on an interval (default 5m)
//   - Maps REST balances through account.BalanceFromREST
//   - Replaces the shared account.Ledger snapshot, which stream updates
//     keep current in between
package poller
