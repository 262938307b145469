package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/auth"
	"github.com/usersaynoso/shadowme-server/internal/core"
	"github.com/usersaynoso/shadowme-server/internal/proto"
	"github.com/usersaynoso/shadowme-server/internal/utils"
)

const (
	authTimeout  = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// The first envelope on a new connection must be auth; everything after
// that flows through the hub.
type WSHandler struct {
	hub         *core.Hub
	authService *auth.Service
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, authService: authService, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	claims, err := h.authenticate(ctx, conn)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth failed")
		conn.Close(websocket.StatusPolicyViolation, "authentication required")
		return
	}

	client := core.NewClient(utils.NewConnID(), claims.UserID, claims.Username)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("user_id", client.UserID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// authenticate reads the first envelope and validates its token. The
// envelope must be auth with a token whose claims match the stated user.
func (h *WSHandler) authenticate(ctx context.Context, conn *websocket.Conn) (*auth.Claims, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var env proto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		return nil, err
	}
	if env.Type != proto.TypeAuth {
		return nil, errors.New("first envelope must be auth")
	}

	var p proto.AuthPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, err
	}

	claims, err := h.authService.ValidateToken(p.Token)
	if err != nil {
		return nil, err
	}
	if p.UserID != "" && p.UserID != claims.UserID {
		return nil, errors.New("auth user id does not match token")
	}

	return claims, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}

		cmd, protoErr, err := envelopeToCommand(env)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("failed to map envelope")
			return err
		}
		if protoErr != nil {
			errEnv, envErr := proto.NewEnvelope(proto.TypeError, protoErr)
			if envErr != nil {
				return envErr
			}
			if writeErr := wsjson.Write(ctx, conn, errEnv); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd != nil {
			client.Commands <- cmd
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			env, err := envelopeFromEvent(event)
			if err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("failed to map event")
				continue
			}
			if err := wsjson.Write(ctx, conn, env); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ping.C:
			env, _ := proto.NewEnvelope(proto.TypePing, nil)
			if err := wsjson.Write(ctx, conn, env); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
