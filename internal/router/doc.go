// Package router implements the Consumer Adapter.
//
// The router merges the four stream channels into a single Update channel,
// captures each stream's control handle from its Created event and keeps
// per-stream connection statistics for the health endpoint.
//
// Forwarding blocks when the Update channel is full, which in turn blocks
// the engines. Nothing is dropped between the engines and the consumer.
package router
