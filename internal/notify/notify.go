// Package notify delivers fire-and-forget text notifications. Producers never
// block and never see delivery failures.
package notify

// Notifier is the outbound human-readable channel. Implementations must not
// block the caller and must swallow their own errors.
type Notifier interface {
	Notify(text string)
}

// Noop discards every message. Used in tests and when the channel is disabled.
type Noop struct{}

// Notify drops the message.
func (Noop) Notify(string) {}
