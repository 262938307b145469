package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/usersaynoso/shadowme-server/internal/config"
	"github.com/usersaynoso/shadowme-server/internal/core"
	"github.com/usersaynoso/shadowme-server/internal/proto"
	"github.com/usersaynoso/shadowme-server/internal/store"
)

type testServer struct {
	ts       *httptest.Server
	store    store.Store
	services Services
	hub      *core.Hub
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	testStore := createTestStore(t)

	logger := zerolog.Nop()
	hub := core.NewHub(testStore, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	svcs := createTestServices(t, testStore, hub)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}

	server := NewServer(hub, svcs, testStore, cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: testStore, services: svcs, hub: hub}
}

// registerUser registers a user through the auth service and returns the
// token and user id.
func registerUser(t *testing.T, srv *testServer, email, username string) (string, string) {
	t.Helper()
	token, user, err := srv.services.Auth.Register(context.Background(), email, username, "password123")
	require.NoError(t, err)
	return token, user.ID
}

// createSession persists a session hosted by hostID and adds the given
// extra participants.
func createSession(t *testing.T, srv *testServer, hostID string, participants ...string) string {
	t.Helper()
	start := time.Now().Add(time.Hour)
	session, err := srv.services.Sessions.Create(context.Background(), hostID, "Shadow run", "", start, start.Add(time.Hour))
	require.NoError(t, err)
	for _, p := range participants {
		require.NoError(t, srv.services.Sessions.Join(context.Background(), session.ID, p))
	}
	return session.ID
}

// dialWS opens an authenticated realtime connection.
func dialWS(t *testing.T, ctx context.Context, srv *testServer, token, userID string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(srv.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })

	env, err := proto.NewEnvelope(proto.TypeAuth, proto.AuthPayload{UserID: userID, Token: token})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, env))

	return conn
}

func sendEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	env, err := proto.NewEnvelope(typ, payload)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, env))
}

// readEnvelope reads envelopes until one of the wanted type arrives,
// skipping server pings.
func readEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn, wantType string) proto.Envelope {
	t.Helper()
	for {
		var env proto.Envelope
		require.NoError(t, wsjson.Read(ctx, conn, &env))
		if env.Type == proto.TypePing {
			continue
		}
		require.Equal(t, wantType, env.Type, "unexpected envelope: %s %s", env.Type, env.Payload)
		return env
	}
}

func TestWebSocketChatFlow(t *testing.T) {
	srv := startTestServer(t)

	tokenA, userA := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, userB := registerUser(t, srv, "bob@example.com", "bob")
	sessionID := createSession(t, srv, userA, userB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(t, ctx, srv, tokenA, userA)
	connB := dialWS(t, ctx, srv, tokenB, userB)

	sendEnvelope(t, ctx, connA, proto.TypeJoinSession, proto.SessionPayload{SessionID: sessionID})
	// A sees its own join.
	env := readEnvelope(t, ctx, connA, proto.TypeParticipantJoined)
	requirePresence(t, env, userA)

	sendEnvelope(t, ctx, connB, proto.TypeJoinSession, proto.SessionPayload{SessionID: sessionID})
	env = readEnvelope(t, ctx, connA, proto.TypeParticipantJoined)
	requirePresence(t, env, userB)
	env = readEnvelope(t, ctx, connB, proto.TypeParticipantJoined)
	requirePresence(t, env, userB)

	sendEnvelope(t, ctx, connA, proto.TypeMessage, proto.MessagePayload{SessionID: sessionID, Content: "hi there"})

	env = readEnvelope(t, ctx, connB, proto.TypeMessage)
	var chat proto.ChatPayload
	require.NoError(t, unmarshalPayload(env, &chat))
	require.Equal(t, userA, chat.SenderID)
	require.Equal(t, "alice", chat.SenderName)
	require.Equal(t, "hi there", chat.Content)

	// The message was persisted.
	msgs, err := srv.store.ListMessages(ctx, sessionID, 10, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hi there", msgs[0].Body)
}

func TestWebSocketTypingBroadcast(t *testing.T) {
	srv := startTestServer(t)

	tokenA, userA := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, userB := registerUser(t, srv, "bob@example.com", "bob")
	sessionID := createSession(t, srv, userA, userB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(t, ctx, srv, tokenA, userA)
	connB := dialWS(t, ctx, srv, tokenB, userB)

	sendEnvelope(t, ctx, connA, proto.TypeJoinSession, proto.SessionPayload{SessionID: sessionID})
	readEnvelope(t, ctx, connA, proto.TypeParticipantJoined)
	sendEnvelope(t, ctx, connB, proto.TypeJoinSession, proto.SessionPayload{SessionID: sessionID})
	readEnvelope(t, ctx, connB, proto.TypeParticipantJoined)
	readEnvelope(t, ctx, connA, proto.TypeParticipantJoined)

	sendEnvelope(t, ctx, connA, proto.TypeTyping, proto.TypingPayload{SessionID: sessionID, IsTyping: true})

	env := readEnvelope(t, ctx, connB, proto.TypeUserTyping)
	var typing proto.UserTypingPayload
	require.NoError(t, unmarshalPayload(env, &typing))
	require.Equal(t, userA, typing.UserID)
	require.True(t, typing.IsTyping)
}

func TestWebSocketRejectsNonParticipant(t *testing.T) {
	srv := startTestServer(t)

	_, userA := registerUser(t, srv, "alice@example.com", "alice")
	tokenB, userB := registerUser(t, srv, "bob@example.com", "bob")
	sessionID := createSession(t, srv, userA)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connB := dialWS(t, ctx, srv, tokenB, userB)

	sendEnvelope(t, ctx, connB, proto.TypeJoinSession, proto.SessionPayload{SessionID: sessionID})

	env := readEnvelope(t, ctx, connB, proto.TypeError)
	var perr proto.ErrorPayload
	require.NoError(t, unmarshalPayload(env, &perr))
	require.Equal(t, core.ErrCodeNotParticipant, perr.Code)
}

func TestWebSocketRequiresAuth(t *testing.T) {
	srv := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(srv.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Send a join before auth; the server must refuse the connection.
	env, err := proto.NewEnvelope(proto.TypeJoinSession, proto.SessionPayload{SessionID: "s1"})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, env))

	var resp proto.Envelope
	readErr := wsjson.Read(ctx, conn, &resp)
	require.Error(t, readErr)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(readErr))
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(srv.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	env, err := proto.NewEnvelope(proto.TypeAuth, proto.AuthPayload{UserID: "u1", Token: "garbage"})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, env))

	var resp proto.Envelope
	readErr := wsjson.Read(ctx, conn, &resp)
	require.Error(t, readErr)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(readErr))
}

func unmarshalPayload(env proto.Envelope, v any) error {
	return json.Unmarshal(env.Payload, v)
}

func requirePresence(t *testing.T, env proto.Envelope, wantUserID string) {
	t.Helper()
	var p proto.PresencePayload
	require.NoError(t, unmarshalPayload(env, &p))
	require.Equal(t, wantUserID, p.UserID)
}
