package reaction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ActionClient abstracts the subset of the platform HTTP client used by the
// Manager. Platform adapters (discord, slack) implement it; tests use mocks.
type ActionClient interface {
	AddReaction(ctx context.Context, msg MessageRef, emoji Emoji) error
	RemoveReaction(ctx context.Context, msg MessageRef, emoji Emoji, userID string) error
	RemoveAllReactions(ctx context.Context, msg MessageRef) error
	DeleteMessage(ctx context.Context, msg MessageRef) error
}

// Manager attaches and removes reactions on messages. Attachment runs either
// blocking (Attach) or fire-and-forget (AttachAsync); cleanup operations are
// always best-effort and never return an error, since by the time cleanup
// runs the interaction's outcome has already been decided.
type Manager struct {
	client  ActionClient
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewManager creates a Manager. The rate limiter defaults to unlimited; use
// SetRateLimit to pace add-reaction calls for platforms that throttle them.
func NewManager(client ActionClient, log zerolog.Logger) *Manager {
	return &Manager{
		client:  client,
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     log,
	}
}

// SetRateLimit paces add-reaction calls to one per interval with the given
// burst. Must be called before the Manager is shared between goroutines.
func (m *Manager) SetRateLimit(interval time.Duration, burst int) {
	m.limiter = rate.NewLimiter(rate.Every(interval), burst)
}

// Attach adds every emoji to the message in the given order. The first
// failure aborts and is returned: a prompt or menu that cannot attach its
// reactions in blocking mode must not proceed to wait on them.
func (m *Manager) Attach(ctx context.Context, msg MessageRef, emojis []Emoji) error {
	for _, e := range emojis {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("reaction.Manager.Attach: %w", err)
		}
		if err := m.client.AddReaction(ctx, msg, e); err != nil {
			return fmt.Errorf("reaction.Manager.Attach: %q: %w", e, err)
		}
	}
	return nil
}

// AttachAsync issues the same add-reaction loop from a detached goroutine so
// the caller can start listening for events immediately. Order is preserved.
// A user may react before every emoji is attached; the event filter still
// rejects emoji outside the legal set, so this is a latency trade-off, not a
// correctness hazard. Failures are logged and swallowed.
func (m *Manager) AttachAsync(ctx context.Context, msg MessageRef, emojis []Emoji) {
	go func() {
		if err := m.Attach(ctx, msg, emojis); err != nil {
			m.swallow("attach", msg, err)
		}
	}()
}

// Detach removes one user's emoji from the message. Best-effort.
func (m *Manager) Detach(ctx context.Context, msg MessageRef, emoji Emoji, userID string) {
	if err := m.client.RemoveReaction(ctx, msg, emoji, userID); err != nil {
		m.swallow("detach", msg, err)
	}
}

// Clear removes all reactions from the message. Best-effort.
func (m *Manager) Clear(ctx context.Context, msg MessageRef) {
	if err := m.client.RemoveAllReactions(ctx, msg); err != nil {
		m.swallow("clear", msg, err)
	}
}

// ClearAsync runs Clear from a detached goroutine.
func (m *Manager) ClearAsync(ctx context.Context, msg MessageRef) {
	go m.Clear(ctx, msg)
}

// Delete deletes the message entirely. Best-effort.
func (m *Manager) Delete(ctx context.Context, msg MessageRef) {
	if err := m.client.DeleteMessage(ctx, msg); err != nil {
		m.swallow("delete", msg, err)
	}
}

// swallow logs a non-fatal action failure. Missing permissions and deleted
// messages are routine during cleanup (the user may have removed the message
// between render and cleanup) and are logged at debug.
func (m *Manager) swallow(op string, msg MessageRef, err error) {
	ev := m.log.Warn()
	if IsTransient(err) {
		ev = m.log.Debug()
	}
	what := "reaction cleanup failed"
	if op == "attach" {
		what = "reaction attach failed"
	}
	ev.Err(err).
		Str("op", op).
		Str("channel_id", msg.ChannelID).
		Str("message_id", msg.MessageID).
		Msg(what)
}
