// Package transport owns the push channel to the processing backend.
//
// A Channel keeps at most one live websocket. Every Connect bumps a
// generation counter and supersedes the previous socket; callbacks carrying
// an older generation are discarded, so a late close from a replaced socket
// can never schedule a second reconnect.
//
// Lifecycle:
//
//	Disconnected -> Connecting -> Connected
//	Connected    -> ReconnectScheduled   (unexpected close)
//	ReconnectScheduled -> Connecting     (after the reconnect delay)
//	any          -> Disconnected         (Disconnect)
//
// While connected a {"type":"ping"} frame is written every keepalive
// interval. Inbound frames are decoded with sonic; pong frames only prove
// liveness, unknown frames are logged and dropped, and everything else is
// handed to the Sink. Connection errors are logged and never reach the Sink.
package transport
