package events

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, the UI).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Wire is the transport-friendly representation of an event handed to RPC
// subscribers and pollers.
type Wire struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// WireConvertible is implemented by typed events that can flatten themselves
// into the wire representation.
type WireConvertible interface {
	Event
	Wire() Wire
}
