// Package connection implements the Session Transport used by the stream engine.
//
// A Session is one WebSocket connection:
//   - Dial opens it against a resolved endpoint URL
//   - Messages yields raw frames in delivery order and is closed when the
//     session ends
//   - Protocol pings and pongs surface as heartbeat frames so the engine's
//     liveness watchdog sees them as activity
//   - Close sets the stop flag checked by the read loop and closes the socket
//
// Sessions never reconnect on their own; reconnection belongs to the engine.
package connection
