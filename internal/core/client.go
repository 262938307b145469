package core

import "sync"

// Client is a session participant as seen by the core layer. One Client
// corresponds to one realtime connection.
type Client struct {
	ID       string
	UserID   string
	Name     string
	Commands chan *Command
	Events   chan *Event
	Sessions map[string]struct{}

	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels. id identifies
// the connection; userID and name come from the authenticated user.
func NewClient(id, userID, name string) *Client {
	if name == "" {
		name = userID
	}
	return &Client{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
		Sessions: make(map[string]struct{}),
	}
}

// CloseCommands closes the command channel exactly once; the hub treats
// this as the client going away.
func (c *Client) CloseCommands() {
	c.closeOnce.Do(func() {
		close(c.Commands)
	})
}
