// Package ticker subscribes to the all-market rolling 24h mini ticker.
//
// The stream name is fixed, so resolution never fails and a control
// message can only force a reconnect.
package ticker
