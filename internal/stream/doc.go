// Package stream implements the reconnecting subscription engine shared by
// every stream kind.
//
// An engine owns at most one session at a time and loops forever:
//
//	Idle → Resolving → Connecting → Connected → Disconnected → Idle
//
// Each kind plugs in a Source that resolves the endpoint, decodes frames,
// projects them into payloads and applies control messages. The engine is
// payload-agnostic.
//
// The consumer sees one Created event carrying the Control handle, then
// alternating Connected / Message* / Disconnected cycles on a bounded
// channel. Forwarding blocks when the channel is full; nothing is dropped.
// Error detail stays in the logs.
//
// Priority inside a connection, highest first:
//  1. transport error or closure
//  2. control message
//  3. inbound frame
//  4. liveness deadline
//
// Cancelling the context passed to Start stops the engine and closes the
// output channel.
package stream
