package channel

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/proto"
)

// State describes the connection lifecycle of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

var (
	// ErrEmptySessionID is returned by Open when no session id is given.
	ErrEmptySessionID = errors.New("session id is required")
	// ErrEmptyUserID is returned by Open when no user id is given.
	ErrEmptyUserID = errors.New("user id is required")
)

// ChatMessage is one rendered chat line, appended in receipt order.
type ChatMessage struct {
	SenderID   string
	SenderName string
	Content    string
	Timestamp  string
}

// Hooks notify external collaborators about events the client does not
// handle itself. All hooks are optional and must not block.
type Hooks struct {
	// InvalidateParticipants fires when the roster changes, so a cached
	// participant list can be refetched.
	InvalidateParticipants func()
	// InvalidateSession fires on a session_update envelope.
	InvalidateSession func()
	// ConnectionLost fires once when the transport fails; intended for a
	// transient user notification. No reconnect is attempted.
	ConnectionLost func(reason string)
	// ProtocolError fires when the server answers with an error envelope,
	// for example when a join is refused.
	ProtocolError func(code, msg string)
}

// Client manages one realtime connection to a shadow-session room and
// exposes the derived chat state. A Client is owned by exactly one view;
// construct one per session view instead of sharing it.
//
// All inbound envelopes are dispatched from a single receive loop, so the
// chat sequence, roster and typing map observe them in delivery order.
type Client struct {
	dial  Dialer
	hooks Hooks
	log   *zerolog.Logger

	mu        sync.Mutex
	state     State
	transport Transport
	sessionID string
	userID    string
	authToken string
	messages  []ChatMessage
	typing    map[string]bool
	roster    map[string]struct{}
	recvDone  chan struct{}
	recvStop  context.CancelFunc
}

// NewClient builds a client that will connect through dial.
func NewClient(dial Dialer, hooks Hooks, logger *zerolog.Logger) *Client {
	return &Client{
		dial:   dial,
		hooks:  hooks,
		log:    logger,
		typing: make(map[string]bool),
		roster: make(map[string]struct{}),
	}
}

// SetAuthToken sets the bearer token included in the auth envelope on the
// next Open. Servers that require token auth reject connections without it.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

// Open establishes the transport and joins the session room: it sends an
// auth envelope for userID followed by a join envelope for sessionID.
// An already-open client is torn down first, so reopening with a different
// session id supersedes the prior connection.
func (c *Client) Open(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if userID == "" {
		return ErrEmptyUserID
	}

	c.Close()

	c.mu.Lock()
	c.state = StateConnecting
	c.sessionID = sessionID
	c.userID = userID
	// The chat sequence, roster and typing map are scoped to one session
	// view; a fresh connection starts from nothing.
	c.messages = nil
	c.typing = make(map[string]bool)
	c.roster = make(map[string]struct{})
	token := c.authToken
	c.mu.Unlock()

	transport, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.notifyLost("connect failed")
		return err
	}

	for _, env := range []struct {
		typ     string
		payload any
	}{
		{proto.TypeAuth, proto.AuthPayload{UserID: userID, Token: token}},
		{proto.TypeJoinSession, proto.SessionPayload{SessionID: sessionID}},
	} {
		e, err := proto.NewEnvelope(env.typ, env.payload)
		if err == nil {
			err = transport.Send(ctx, e)
		}
		if err != nil {
			_ = transport.Close()
			c.mu.Lock()
			c.state = StateDisconnected
			c.mu.Unlock()
			c.notifyLost("handshake failed")
			return err
		}
	}

	recvCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.transport = transport
	c.state = StateConnected
	c.recvStop = stop
	c.recvDone = done
	c.mu.Unlock()

	go c.receiveLoop(recvCtx, transport, done)
	return nil
}

// Close leaves the session room and releases the transport. It is safe to
// call at any time, including before Open or repeatedly.
func (c *Client) Close() {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	transport := c.transport
	sessionID := c.sessionID
	stop := c.recvStop
	done := c.recvDone
	c.mu.Unlock()

	if env, err := proto.NewEnvelope(proto.TypeLeaveSession, proto.SessionPayload{SessionID: sessionID}); err == nil {
		// Best effort: the transport may already be going away.
		_ = transport.Send(context.Background(), env)
	}

	stop()
	_ = transport.Close()
	<-done

	c.mu.Lock()
	c.state = StateDisconnected
	c.transport = nil
	c.mu.Unlock()
}

// SendMessage transmits a chat message for the current session. It returns
// false without transmitting when content is blank after trimming or the
// client is not connected. The message is not appended locally; it comes
// back through the broadcast like everyone else's.
func (c *Client) SendMessage(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return false
	}
	transport := c.transport
	sessionID := c.sessionID
	c.mu.Unlock()

	env, err := proto.NewEnvelope(proto.TypeMessage, proto.MessagePayload{
		SessionID: sessionID,
		Content:   content,
	})
	if err == nil {
		err = transport.Send(context.Background(), env)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("send message")
		return false
	}
	return true
}

// SendTypingIndicator reports the local composing state. Fire and forget;
// does nothing when not connected.
func (c *Client) SendTypingIndicator(isTyping bool) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	transport := c.transport
	sessionID := c.sessionID
	c.mu.Unlock()

	env, err := proto.NewEnvelope(proto.TypeTyping, proto.TypingPayload{
		SessionID: sessionID,
		IsTyping:  isTyping,
	})
	if err == nil {
		err = transport.Send(context.Background(), env)
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("send typing indicator")
	}
}

// Connected reports whether the transport is open and joined.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the chat sequence in receipt order.
func (c *Client) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Typing returns a copy of the per-participant composing map. Entries stay
// in the map once seen; only their value toggles.
func (c *Client) Typing() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.typing))
	for k, v := range c.typing {
		out[k] = v
	}
	return out
}

// Participants returns the ids currently joined to the session room.
func (c *Client) Participants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.roster))
	for id := range c.roster {
		out = append(out, id)
	}
	return out
}

func (c *Client) receiveLoop(ctx context.Context, transport Transport, done chan struct{}) {
	defer close(done)

	for {
		env, err := transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Torn down by Close; not a failure.
				return
			}
			c.mu.Lock()
			closing := c.state != StateConnected
			if !closing {
				c.state = StateDisconnected
				c.transport = nil
			}
			c.mu.Unlock()
			if !closing {
				_ = transport.Close()
				c.log.Warn().Err(err).Msg("realtime transport lost")
				c.notifyLost("connection lost")
			}
			return
		}
		c.dispatch(ctx, transport, env)
	}
}

func (c *Client) dispatch(ctx context.Context, transport Transport, env proto.Envelope) {
	switch env.Type {
	case proto.TypeMessage:
		var p proto.ChatPayload
		if !c.decode(env, &p) {
			return
		}
		c.mu.Lock()
		c.messages = append(c.messages, ChatMessage{
			SenderID:   p.SenderID,
			SenderName: p.SenderName,
			Content:    p.Content,
			Timestamp:  p.Timestamp,
		})
		c.mu.Unlock()

	case proto.TypeParticipantJoined:
		var p proto.PresencePayload
		if !c.decode(env, &p) {
			return
		}
		c.mu.Lock()
		c.roster[p.UserID] = struct{}{}
		c.mu.Unlock()
		if c.hooks.InvalidateParticipants != nil {
			c.hooks.InvalidateParticipants()
		}

	case proto.TypeParticipantLeft:
		var p proto.PresencePayload
		if !c.decode(env, &p) {
			return
		}
		c.mu.Lock()
		delete(c.roster, p.UserID)
		c.mu.Unlock()
		if c.hooks.InvalidateParticipants != nil {
			c.hooks.InvalidateParticipants()
		}

	case proto.TypeUserTyping:
		var p proto.UserTypingPayload
		if !c.decode(env, &p) {
			return
		}
		c.mu.Lock()
		c.typing[p.UserID] = p.IsTyping
		c.mu.Unlock()

	case proto.TypeSessionUpdate:
		if c.hooks.InvalidateSession != nil {
			c.hooks.InvalidateSession()
		}

	case proto.TypeError:
		var p proto.ErrorPayload
		if !c.decode(env, &p) {
			return
		}
		c.log.Warn().Str("code", p.Code).Str("msg", p.Msg).Msg("server rejected request")
		if c.hooks.ProtocolError != nil {
			c.hooks.ProtocolError(p.Code, p.Msg)
		}

	case proto.TypePing:
		env, err := proto.NewEnvelope(proto.TypePong, nil)
		if err == nil {
			err = transport.Send(ctx, env)
		}
		if err != nil {
			c.log.Debug().Err(err).Msg("pong reply")
		}

	default:
		// Unknown types are ignored so newer servers don't break us.
	}
}

// decode unmarshals the payload, logging and dropping malformed frames.
func (c *Client) decode(env proto.Envelope, dst any) bool {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		c.log.Warn().Err(err).Str("type", env.Type).Msg("malformed envelope payload")
		return false
	}
	return true
}

func (c *Client) notifyLost(reason string) {
	if c.hooks.ConnectionLost != nil {
		c.hooks.ConnectionLost(reason)
	}
}
