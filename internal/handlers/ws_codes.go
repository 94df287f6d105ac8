// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handlers. These give clients
// a more specific reason for closure than the standard codes.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	KickedByHostError   = 3001 // Host removed this player from the room.
	RoomEndedError      = 3002 // Session reached END while the client was connected.
	RateLimitError      = 3003 // Client exceeded the per-connection command rate.
)
