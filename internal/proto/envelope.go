package proto

import "encoding/json"

// Envelope is the unit exchanged over the realtime channel in both
// directions. Payload shape depends on Type; types without a payload
// (ping, pong) omit it entirely.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server envelope types.
const (
	TypeAuth         = "auth"
	TypeJoinSession  = "join_shadow_session"
	TypeLeaveSession = "leave_shadow_session"
	TypeMessage      = "session_message"
	TypeTyping       = "typing"
	TypePong         = "pong"
)

// Server-to-client envelope types. TypeMessage is shared: the server
// broadcasts the same tag it accepts.
const (
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeUserTyping        = "user_typing"
	TypeSessionUpdate     = "session_update"
	TypePing              = "ping"
	TypeError             = "error"
)

// AuthPayload introduces the user, sent first after the transport opens.
type AuthPayload struct {
	UserID string `json:"userId"`
	Token  string `json:"token,omitempty"`
}

// SessionPayload scopes join/leave requests to one shadow session.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
}

// MessagePayload is an outgoing chat message.
type MessagePayload struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// TypingPayload reports the local user's composing state.
type TypingPayload struct {
	SessionID string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
}

// ChatPayload is a broadcast chat message as received by clients.
type ChatPayload struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// PresencePayload identifies the participant who joined or left.
type PresencePayload struct {
	UserID string `json:"userId"`
}

// UserTypingPayload reports another participant's composing state.
type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload describes a protocol-level error response.
type ErrorPayload struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewEnvelope marshals payload and wraps it with the given type tag.
// A nil payload produces a bare envelope.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	env := Envelope{Type: typ}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return env, err
	}
	env.Payload = raw
	return env, nil
}
