package web

// WebSocket event types not produced by the engine
const (
	EventSessionSnapshot = "session.snapshot"
	EventMessage         = "message"
)

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
