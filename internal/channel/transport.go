package channel

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/usersaynoso/shadowme-server/internal/proto"
)

// Transport carries envelopes over one bidirectional connection. The
// client owns exactly one transport at a time; implementations do not
// reconnect on their own.
type Transport interface {
	Send(ctx context.Context, env proto.Envelope) error
	Receive(ctx context.Context) (proto.Envelope, error)
	Close() error
}

// Dialer establishes a new transport. The client calls it once per Open.
type Dialer func(ctx context.Context) (Transport, error)

type wsTransport struct {
	conn *websocket.Conn
}

// WebsocketDialer returns a Dialer that connects to the given ws:// or
// wss:// endpoint.
func WebsocketDialer(url string) Dialer {
	return func(ctx context.Context) (Transport, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return &wsTransport{conn: conn}, nil
	}
}

func (t *wsTransport) Send(ctx context.Context, env proto.Envelope) error {
	return wsjson.Write(ctx, t.conn, env)
}

func (t *wsTransport) Receive(ctx context.Context) (proto.Envelope, error) {
	var env proto.Envelope
	err := wsjson.Read(ctx, t.conn, &env)
	return env, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "bye")
}
