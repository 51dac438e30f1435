// Package websocket streams solver progress to a single peer.
//
// A Session wraps one upgraded connection for one inversion: the peer sends
// the request, the server writes progress and completion messages through a
// buffered write pump, and the stream ends with a result or an error message
// followed by a normal close frame.
//
// Progress messages go through Publish, which never blocks and drops
// messages when the peer reads too slowly. Column completions and the final
// message go through Deliver, which waits for buffer space. Watch cancels the
// solve when the peer disconnects.
package websocket
