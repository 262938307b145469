package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventSessionMessage notifies clients about a chat message in a session.
	EventSessionMessage EventKind = iota
	// EventParticipantJoined notifies clients about a user joining a session.
	EventParticipantJoined
	// EventParticipantLeft notifies clients about a user leaving a session.
	EventParticipantLeft
	// EventUserTyping notifies clients about another user's composing state.
	EventUserTyping
	// EventSessionUpdate tells clients to refetch session metadata.
	EventSessionUpdate
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	SessionID string
	UserID    string
	IsTyping  bool
	Message   Message
	Error     *CoreError
}
