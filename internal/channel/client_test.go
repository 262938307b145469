package channel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usersaynoso/shadowme-server/internal/proto"
)

func TestOpenSendsAuthThenJoin(t *testing.T) {
	ft := newFakeTransport()
	client := newTestClient(t, ft)
	defer client.Close()

	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))
	require.True(t, client.Connected())

	auth := nextSent(t, ft)
	require.Equal(t, proto.TypeAuth, auth.Type)
	var authPayload proto.AuthPayload
	require.NoError(t, json.Unmarshal(auth.Payload, &authPayload))
	require.Equal(t, "u1", authPayload.UserID)

	join := nextSent(t, ft)
	require.Equal(t, proto.TypeJoinSession, join.Type)
	var joinPayload proto.SessionPayload
	require.NoError(t, json.Unmarshal(join.Payload, &joinPayload))
	require.Equal(t, "sess-1", joinPayload.SessionID)
}

func TestOpenValidatesIdentifiers(t *testing.T) {
	ft := newFakeTransport()
	client := newTestClient(t, ft)

	require.ErrorIs(t, client.Open(context.Background(), "", "u1"), ErrEmptySessionID)
	require.ErrorIs(t, client.Open(context.Background(), "sess-1", ""), ErrEmptyUserID)
	require.False(t, client.Connected())
}

func TestMessagesPreserveReceiptOrder(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()

	for _, content := range []string{"one", "two", "three"} {
		ft.deliver(t, proto.TypeMessage, proto.ChatPayload{
			SenderID:   "u2",
			SenderName: "Bea",
			Content:    content,
			Timestamp:  "2024-01-01T00:00:00Z",
		})
	}

	waitFor(t, func() bool { return len(client.Messages()) == 3 })

	msgs := client.Messages()
	require.Equal(t, "one", msgs[0].Content)
	require.Equal(t, "two", msgs[1].Content)
	require.Equal(t, "three", msgs[2].Content)
}

func TestChatMessageScenario(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()

	ft.deliver(t, proto.TypeMessage, proto.ChatPayload{
		SenderID:   "u2",
		SenderName: "Bea",
		Content:    "hi",
		Timestamp:  "2024-01-01T00:00:00Z",
	})

	waitFor(t, func() bool { return len(client.Messages()) == 1 })
	require.Equal(t, []ChatMessage{{
		SenderID:   "u2",
		SenderName: "Bea",
		Content:    "hi",
		Timestamp:  "2024-01-01T00:00:00Z",
	}}, client.Messages())
}

func TestSendMessageRejectsBlank(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()
	drainSent(ft)

	require.False(t, client.SendMessage(""))
	require.False(t, client.SendMessage("   "))
	requireNothingSent(t, ft)
}

func TestSendMessageWhileDisconnected(t *testing.T) {
	ft := newFakeTransport()
	client := newTestClient(t, ft)

	require.False(t, client.SendMessage("hello"))
	requireNothingSent(t, ft)
}

func TestSendMessageTransmitsAndDoesNotEcho(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()
	drainSent(ft)

	require.True(t, client.SendMessage("  hi there  "))

	sent := nextSent(t, ft)
	require.Equal(t, proto.TypeMessage, sent.Type)
	var payload proto.MessagePayload
	require.NoError(t, json.Unmarshal(sent.Payload, &payload))
	require.Equal(t, "sess-1", payload.SessionID)
	require.Equal(t, "hi there", payload.Content)

	// Local echo comes back through the broadcast, never optimistically.
	require.Empty(t, client.Messages())
}

func TestRosterLeaveKeepsTypingEntry(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()

	ft.deliver(t, proto.TypeParticipantJoined, proto.PresencePayload{UserID: "u2"})
	ft.deliver(t, proto.TypeUserTyping, proto.UserTypingPayload{UserID: "u2", IsTyping: true})
	waitFor(t, func() bool { return client.Typing()["u2"] })
	require.Equal(t, []string{"u2"}, client.Participants())

	ft.deliver(t, proto.TypeParticipantLeft, proto.PresencePayload{UserID: "u2"})
	waitFor(t, func() bool { return len(client.Participants()) == 0 })

	// Leaving only touches the roster; the typing entry keeps its value.
	require.True(t, client.Typing()["u2"])
}

func TestRosterChangeFiresInvalidation(t *testing.T) {
	ft := newFakeTransport()
	invalidations := make(chan struct{}, 4)
	client := NewClient(ft.dialer(), Hooks{
		InvalidateParticipants: func() { invalidations <- struct{}{} },
	}, testLogger())
	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))
	defer client.Close()

	ft.deliver(t, proto.TypeParticipantJoined, proto.PresencePayload{UserID: "u2"})
	ft.deliver(t, proto.TypeParticipantLeft, proto.PresencePayload{UserID: "u2"})

	for i := 0; i < 2; i++ {
		select {
		case <-invalidations:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected %d roster invalidations, got %d", 2, i)
		}
	}
}

func TestSessionUpdateFiresInvalidation(t *testing.T) {
	ft := newFakeTransport()
	invalidated := make(chan struct{}, 1)
	client := NewClient(ft.dialer(), Hooks{
		InvalidateSession: func() { invalidated <- struct{}{} },
	}, testLogger())
	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))
	defer client.Close()

	ft.deliver(t, proto.TypeSessionUpdate, nil)

	select {
	case <-invalidated:
	case <-time.After(2 * time.Second):
		t.Fatal("session invalidation hook not fired")
	}
}

func TestErrorEnvelopeFiresHook(t *testing.T) {
	ft := newFakeTransport()
	got := make(chan proto.ErrorPayload, 1)
	client := NewClient(ft.dialer(), Hooks{
		ProtocolError: func(code, msg string) { got <- proto.ErrorPayload{Code: code, Msg: msg} },
	}, testLogger())
	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))
	defer client.Close()

	ft.deliver(t, proto.TypeError, proto.ErrorPayload{Code: "not_participant", Msg: "join this session first"})

	select {
	case p := <-got:
		require.Equal(t, "not_participant", p.Code)
		require.Equal(t, "join this session first", p.Msg)
	case <-time.After(2 * time.Second):
		t.Fatal("protocol-error hook not fired")
	}
}

func TestPingProducesPong(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()
	drainSent(ft)

	ft.deliver(t, proto.TypePing, nil)

	pong := nextSent(t, ft)
	require.Equal(t, proto.TypePong, pong.Type)
	require.Nil(t, pong.Payload)
	requireNothingSent(t, ft)
}

func TestMalformedPayloadDropped(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()

	ft.inbound <- proto.Envelope{Type: proto.TypeMessage, Payload: json.RawMessage(`"not an object`)}
	ft.deliver(t, proto.TypeMessage, proto.ChatPayload{SenderID: "u2", SenderName: "Bea", Content: "still alive"})

	waitFor(t, func() bool { return len(client.Messages()) == 1 })
	require.Equal(t, "still alive", client.Messages()[0].Content)
	require.True(t, client.Connected())
}

func TestUnknownEnvelopeIgnored(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	defer client.Close()

	ft.deliver(t, "reaction_added", map[string]string{"emoji": "sparkles"})
	ft.deliver(t, proto.TypeMessage, proto.ChatPayload{SenderID: "u2", Content: "after"})

	waitFor(t, func() bool { return len(client.Messages()) == 1 })
	require.True(t, client.Connected())
}

func TestCloseBeforeOpenIsNoop(t *testing.T) {
	ft := newFakeTransport()
	client := newTestClient(t, ft)

	client.Close()
	client.Close()
	requireNothingSent(t, ft)
	require.Equal(t, StateDisconnected, client.State())
}

func TestCloseSendsLeave(t *testing.T) {
	ft := newFakeTransport()
	client := openTestClient(t, ft)
	drainSent(ft)

	client.Close()

	leave := nextSent(t, ft)
	require.Equal(t, proto.TypeLeaveSession, leave.Type)
	var payload proto.SessionPayload
	require.NoError(t, json.Unmarshal(leave.Payload, &payload))
	require.Equal(t, "sess-1", payload.SessionID)
	require.False(t, client.Connected())
	require.True(t, ft.isClosed())
}

func TestReopenSupersedesPriorSession(t *testing.T) {
	first := newFakeTransport()
	second := newFakeTransport()
	transports := []*fakeTransport{first, second}
	var dials int
	dial := func(ctx context.Context) (Transport, error) {
		ft := transports[dials]
		dials++
		return ft, nil
	}

	client := NewClient(dial, Hooks{}, testLogger())
	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))
	drainSent(first)

	first.deliver(t, proto.TypeMessage, proto.ChatPayload{
		SenderID:   "u2",
		SenderName: "Bea",
		Content:    "old session",
		Timestamp:  "2024-01-01T00:00:00Z",
	})
	first.deliver(t, proto.TypeParticipantJoined, proto.PresencePayload{UserID: "u2"})
	first.deliver(t, proto.TypeUserTyping, proto.UserTypingPayload{UserID: "u2", IsTyping: true})
	waitFor(t, func() bool {
		return len(client.Messages()) == 1 && len(client.Participants()) == 1 && len(client.Typing()) == 1
	})

	require.NoError(t, client.Open(context.Background(), "sess-2", "u1"))
	defer client.Close()

	// The first connection was torn down with a leave for its session.
	leave := nextSent(t, first)
	require.Equal(t, proto.TypeLeaveSession, leave.Type)
	require.True(t, first.isClosed())

	join := nextSent(t, second)
	require.Equal(t, proto.TypeAuth, join.Type)
	join = nextSent(t, second)
	require.Equal(t, proto.TypeJoinSession, join.Type)
	var payload proto.SessionPayload
	require.NoError(t, json.Unmarshal(join.Payload, &payload))
	require.Equal(t, "sess-2", payload.SessionID)

	// Chat, roster and typing state belong to the superseded session and
	// must not carry over into the new view.
	require.Empty(t, client.Messages())
	require.Empty(t, client.Participants())
	require.Empty(t, client.Typing())
}

func TestTransportFailureFlagsDisconnected(t *testing.T) {
	ft := newFakeTransport()
	lost := make(chan string, 1)
	client := NewClient(ft.dialer(), Hooks{
		ConnectionLost: func(reason string) { lost <- reason },
	}, testLogger())
	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))

	ft.fail(errors.New("broken pipe"))

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("connection-lost hook not fired")
	}
	waitFor(t, func() bool { return !client.Connected() })
	waitFor(t, func() bool { return ft.isClosed() })
	require.False(t, client.SendMessage("into the void"))
}

func TestDialFailure(t *testing.T) {
	dialErr := errors.New("refused")
	dial := func(ctx context.Context) (Transport, error) { return nil, dialErr }
	lost := make(chan string, 1)
	client := NewClient(dial, Hooks{
		ConnectionLost: func(reason string) { lost <- reason },
	}, testLogger())

	require.ErrorIs(t, client.Open(context.Background(), "sess-1", "u1"), dialErr)
	require.False(t, client.Connected())
	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("connection-lost hook not fired on dial failure")
	}
}
