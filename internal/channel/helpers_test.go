package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/usersaynoso/shadowme-server/internal/proto"
)

// fakeTransport is a channel-backed Transport for tests: everything the
// client sends lands on sent, and tests push inbound frames via inbound.
type fakeTransport struct {
	sent    chan proto.Envelope
	inbound chan proto.Envelope
	errc    chan error

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:    make(chan proto.Envelope, 16),
		inbound: make(chan proto.Envelope, 16),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (f *fakeTransport) dialer() Dialer {
	return func(ctx context.Context) (Transport, error) { return f, nil }
}

func (f *fakeTransport) Send(ctx context.Context, env proto.Envelope) error {
	select {
	case f.sent <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) Receive(ctx context.Context) (proto.Envelope, error) {
	select {
	case env := <-f.inbound:
		return env, nil
	case err := <-f.errc:
		return proto.Envelope{}, err
	case <-f.done:
		return proto.Envelope{}, errors.New("transport closed")
	case <-ctx.Done():
		return proto.Envelope{}, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// deliver marshals payload into an envelope and queues it for the client.
func (f *fakeTransport) deliver(t *testing.T, typ string, payload any) {
	t.Helper()
	env, err := proto.NewEnvelope(typ, payload)
	require.NoError(t, err)
	f.inbound <- env
}

// fail makes the next Receive return err, simulating a transport error.
func (f *fakeTransport) fail(err error) {
	f.errc <- err
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func newTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	return NewClient(ft.dialer(), Hooks{}, testLogger())
}

func openTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	client := newTestClient(t, ft)
	require.NoError(t, client.Open(context.Background(), "sess-1", "u1"))
	return client
}

// nextSent returns the next envelope the client transmitted.
func nextSent(t *testing.T, ft *fakeTransport) proto.Envelope {
	t.Helper()
	select {
	case env := <-ft.sent:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("expected an envelope to be sent")
		return proto.Envelope{}
	}
}

// requireNothingSent asserts no envelope goes out within a short window.
func requireNothingSent(t *testing.T, ft *fakeTransport) {
	t.Helper()
	select {
	case env := <-ft.sent:
		t.Fatalf("unexpected envelope sent: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func drainSent(ft *fakeTransport) {
	for {
		select {
		case <-ft.sent:
		default:
			return
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
