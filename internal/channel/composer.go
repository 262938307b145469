package channel

import "time"

// typingIdle is how long after the last keystroke the composing state is
// reported as stopped.
const typingIdle = 2 * time.Second

// Sender is the slice of Client the composer needs.
type Sender interface {
	SendMessage(content string) bool
	SendTypingIndicator(isTyping bool)
}

// Composer folds raw keystrokes into debounced typing indicators. Each
// keystroke reports typing and restarts the idle timer; once the timer
// expires, a single stop indicator goes out. Sending a message cancels the
// pending timer and reports the stop immediately, so the stop is never sent
// twice for one burst.
type Composer struct {
	sender Sender
	idle   *Debouncer
}

// NewComposer builds a composer over sender with the standard idle window.
func NewComposer(sender Sender) *Composer {
	return newComposer(sender, typingIdle)
}

func newComposer(sender Sender, idle time.Duration) *Composer {
	c := &Composer{sender: sender}
	c.idle = NewDebouncer(idle, func() {
		sender.SendTypingIndicator(false)
	})
	return c
}

// Keystroke reports that the user is composing and pushes out the idle
// deadline.
func (c *Composer) Keystroke() {
	c.sender.SendTypingIndicator(true)
	c.idle.Reschedule()
}

// Send submits the composed message and clears the typing state.
func (c *Composer) Send(content string) bool {
	c.idle.Cancel()
	ok := c.sender.SendMessage(content)
	c.sender.SendTypingIndicator(false)
	return ok
}

// Stop cancels any pending idle run; call it on view teardown so the timer
// never outlives the view.
func (c *Composer) Stop() {
	c.idle.Cancel()
}
