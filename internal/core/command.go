package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinSession subscribes the client to a session room.
	CommandJoinSession CommandKind = iota
	// CommandLeaveSession unsubscribes the client from a session room.
	CommandLeaveSession
	// CommandSendMessage delivers a chat message to session participants.
	CommandSendMessage
	// CommandTyping reports the client's composing state to the room.
	CommandTyping
)

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	SessionID string
	Body      string
	IsTyping  bool
}
