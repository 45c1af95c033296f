// Package trade subscribes to the raw trade stream of one symbol.
package trade
