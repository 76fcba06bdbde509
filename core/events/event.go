package events

// Event is a structured state change published after a commit.
type Event interface {
	EventType() string
}

// Emitter delivers events to a downstream consumer such as the indexer.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a plain function to Emitter.
type EmitterFunc func(Event)

// Emit calls f.
func (f EmitterFunc) Emit(evt Event) { f(evt) }

// Discard drops every event. Nodes built without an emitter use it.
var Discard Emitter = EmitterFunc(func(Event) {})
