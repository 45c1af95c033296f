// Package orderbook subscribes to diff depth updates for one symbol and
// maintains a local price-ordered book.
//
// Book sides are B-trees keyed by price: bids iterate highest first, asks
// lowest first. A zero quantity removes a level, any other quantity
// replaces it, so applying the same update twice leaves the book unchanged.
//
// Each new connection and each symbol change starts from an empty book.
package orderbook
