package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// clientCommand pairs a command with the client that issued it.
type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub coordinates session rooms. All room and membership state is owned by
// the single Run goroutine; per-client forwarders funnel commands into one
// channel, so commands from one client are handled in the order they were
// sent and no two commands are handled concurrently.
type Hub struct {
	store store.Store
	log   *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	updates    chan string

	rooms   map[string]*Room
	clients map[*Client]struct{}
}

// NewHub creates a hub. The store may be nil, in which case membership is
// not enforced and messages are not persisted (used by tests).
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		store:      st,
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		updates:    make(chan string, 16),
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]struct{}),
	}
}

// RegisterClient hands a client to the hub. The hub consumes the client's
// Commands channel until it is closed.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient detaches a client. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	c.CloseCommands()
}

// BroadcastSessionUpdate tells everyone in the session's room to refetch
// session metadata. No-op when nobody is connected.
func (h *Hub) BroadcastSessionUpdate(sessionID string) {
	select {
	case h.updates <- sessionID:
	default:
		h.log.Warn().Str("session_id", sessionID).Msg("session update dropped, hub busy")
	}
}

// Run processes registrations, commands and updates until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			go h.forward(ctx, client)

		case client := <-h.unregister:
			h.dropClient(client)

		case cc := <-h.commands:
			h.handleCommand(ctx, cc.client, cc.cmd)

		case sessionID := <-h.updates:
			if room, ok := h.rooms[sessionID]; ok {
				room.Broadcast(&Event{Kind: EventSessionUpdate, SessionID: sessionID})
			}

		case <-ctx.Done():
			return
		}
	}
}

// forward moves one client's commands into the shared command channel,
// preserving their order. When the client's channel closes it requests
// unregistration.
func (h *Hub) forward(ctx context.Context, client *Client) {
	for {
		select {
		case cmd, ok := <-client.Commands:
			if !ok {
				select {
				case h.unregister <- client:
				case <-ctx.Done():
				}
				return
			}
			select {
			case h.commands <- clientCommand{client: client, cmd: cmd}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for sessionID := range client.Sessions {
		h.leaveRoom(client, sessionID, false)
	}
	close(client.Events)
}

func (h *Hub) handleCommand(ctx context.Context, client *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinSession:
		h.handleJoin(ctx, client, cmd.SessionID)
	case CommandLeaveSession:
		h.handleLeave(client, cmd.SessionID)
	case CommandSendMessage:
		h.handleMessage(ctx, client, cmd)
	case CommandTyping:
		h.handleTyping(client, cmd)
	}
}

func (h *Hub) handleJoin(ctx context.Context, client *Client, sessionID string) {
	if sessionID == "" {
		h.sendError(client, coreError(ErrCodeBadRequest, "session id is required"))
		return
	}
	if _, joined := client.Sessions[sessionID]; joined {
		h.sendError(client, coreError(ErrCodeAlreadyJoined, "already joined"))
		return
	}

	if h.store != nil {
		ok, err := h.store.IsParticipant(ctx, sessionID, client.UserID)
		if err != nil {
			h.log.Error().Err(err).Str("session_id", sessionID).Msg("participant check failed")
			h.sendError(client, coreError(ErrCodeSessionNotFound, "session not found"))
			return
		}
		if !ok {
			h.sendError(client, coreError(ErrCodeNotParticipant, "not a session participant"))
			return
		}
	}

	room, ok := h.rooms[sessionID]
	if !ok {
		room = NewRoom(sessionID)
		h.rooms[sessionID] = room
	}
	room.AddClient(client)
	client.Sessions[sessionID] = struct{}{}

	room.Broadcast(&Event{
		Kind:      EventParticipantJoined,
		SessionID: sessionID,
		UserID:    client.UserID,
	})
	h.log.Debug().Str("session_id", sessionID).Str("user_id", client.UserID).Msg("client joined session")
}

func (h *Hub) handleLeave(client *Client, sessionID string) {
	if _, ok := h.rooms[sessionID]; !ok {
		h.sendError(client, coreError(ErrCodeSessionNotFound, "session not found"))
		return
	}
	if _, joined := client.Sessions[sessionID]; !joined {
		h.sendError(client, coreError(ErrCodeNotInSession, "not in session"))
		return
	}
	h.leaveRoom(client, sessionID, true)
}

func (h *Hub) leaveRoom(client *Client, sessionID string, notifySelf bool) {
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	room.RemoveClient(client)
	delete(client.Sessions, sessionID)

	event := &Event{
		Kind:      EventParticipantLeft,
		SessionID: sessionID,
		UserID:    client.UserID,
	}
	room.Broadcast(event)
	if notifySelf {
		h.sendEvent(client, event)
	}

	if room.Empty() {
		delete(h.rooms, sessionID)
	}
}

func (h *Hub) handleMessage(ctx context.Context, client *Client, cmd *Command) {
	if _, joined := client.Sessions[cmd.SessionID]; !joined {
		h.sendError(client, coreError(ErrCodeNotInSession, "not in session"))
		return
	}

	msg := Message{
		SessionID:  cmd.SessionID,
		SenderID:   client.UserID,
		SenderName: client.Name,
		Body:       cmd.Body,
		CreatedAt:  time.Now().UTC(),
	}

	if h.store != nil {
		record := &store.Message{
			SessionID: msg.SessionID,
			UserID:    msg.SenderID,
			Body:      msg.Body,
			CreatedAt: msg.CreatedAt,
		}
		if err := h.store.SaveMessage(ctx, record); err != nil {
			h.log.Error().Err(err).Str("session_id", cmd.SessionID).Msg("persist message failed")
		} else {
			msg.ID = record.ID
		}
	}

	h.rooms[cmd.SessionID].Broadcast(&Event{
		Kind:      EventSessionMessage,
		SessionID: cmd.SessionID,
		Message:   msg,
	})
}

func (h *Hub) handleTyping(client *Client, cmd *Command) {
	room, ok := h.rooms[cmd.SessionID]
	if !ok {
		return
	}
	if _, joined := client.Sessions[cmd.SessionID]; !joined {
		return
	}
	room.Broadcast(&Event{
		Kind:      EventUserTyping,
		SessionID: cmd.SessionID,
		UserID:    client.UserID,
		IsTyping:  cmd.IsTyping,
	})
}

func (h *Hub) sendError(client *Client, cerr *CoreError) {
	h.sendEvent(client, &Event{Kind: EventError, Error: cerr})
}

func (h *Hub) sendEvent(client *Client, event *Event) {
	select {
	case client.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
