// Package prompt implements one-shot waits for a user's response: a reaction
// prompt resolves a single choice from a fixed emoji set before a deadline,
// and a message prompt waits for the user's next message in a channel.
package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/waitfor/reaction"
	"github.com/gosuda/waitfor/stream"
)

// Emoji pair used by YesNo.
const (
	EmojiYes reaction.Emoji = "✅" // white heavy check mark
	EmojiNo  reaction.Emoji = "❌" // cross mark
)

// Outcome is the terminal state of a prompt. Exactly one is produced per
// invocation; timeouts and caller aborts are outcomes, not errors.
type Outcome int

const (
	// Selected means the user reacted with one of the legal emoji.
	Selected Outcome = iota
	// TimedOut means the deadline fired before a qualifying reaction.
	TimedOut
	// Cancelled means the caller's context was cancelled.
	Cancelled
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome of one prompt. For Selected reaction prompts, Index
// is the position of the chosen emoji in the caller's original set; callers
// branch on it.
type Result struct {
	Outcome Outcome
	Index   int
	Emoji   reaction.Emoji
}

// Engine runs prompts. It needs the reaction manager to attach choices and
// the dispatchers to wait on the user's response.
type Engine struct {
	reactions   *reaction.Manager
	events      *stream.Dispatcher
	messages    *stream.MessageDispatcher
	nonBlocking bool
	log         zerolog.Logger
}

// NewEngine creates a prompt Engine. messages may be nil if message prompts
// are not used.
func NewEngine(reactions *reaction.Manager, events *stream.Dispatcher, messages *stream.MessageDispatcher, log zerolog.Logger) *Engine {
	return &Engine{
		reactions: reactions,
		events:    events,
		messages:  messages,
		log:       log,
	}
}

// SetNonBlocking switches reaction attachment to the fire-and-forget mode:
// the prompt starts listening before all emoji are attached. Must be set
// before the Engine is shared between goroutines.
func (e *Engine) SetNonBlocking(v bool) {
	e.nonBlocking = v
}

// Prompt attaches the emoji set to msg and waits for userID to react with
// one of them. It resolves exactly once: the first qualifying reaction wins,
// the deadline firing yields TimedOut, and ctx cancellation yields
// Cancelled. Reactions are cleared best-effort after the outcome is decided.
func (e *Engine) Prompt(ctx context.Context, msg reaction.MessageRef, userID string, emojis []reaction.Emoji, timeout time.Duration) (Result, error) {
	if err := reaction.ValidateEmojiSet(emojis); err != nil {
		return Result{}, fmt.Errorf("prompt.Engine.Prompt: %w", err)
	}
	deadline, err := stream.NewDeadline(timeout)
	if err != nil {
		return Result{}, fmt.Errorf("prompt.Engine.Prompt: %w", err)
	}

	if e.nonBlocking {
		e.reactions.AttachAsync(ctx, msg, emojis)
	} else if err := e.reactions.Attach(ctx, msg, emojis); err != nil {
		deadline.Cancel()
		e.reactions.ClearAsync(context.WithoutCancel(ctx), msg)
		return Result{}, fmt.Errorf("prompt.Engine.Prompt: %w", err)
	}

	filter := reaction.Filter{Message: msg, UserID: userID, Emojis: emojis}
	sub, err := e.events.Subscribe(filter)
	if err != nil {
		deadline.Cancel()
		e.reactions.ClearAsync(context.WithoutCancel(ctx), msg)
		return Result{}, fmt.Errorf("prompt.Engine.Prompt: %w", err)
	}

	// Cleanup never changes the already-decided outcome.
	defer e.reactions.ClearAsync(context.WithoutCancel(ctx), msg)

	select {
	case ev, ok := <-sub.Events():
		deadline.Cancel()
		sub.Cancel()
		if !ok {
			return Result{}, fmt.Errorf("prompt.Engine.Prompt: %w", reaction.ErrStreamClosed)
		}
		idx, _ := filter.Index(ev.Emoji)
		e.log.Debug().
			Str("message_id", msg.MessageID).
			Str("user_id", userID).
			Str("emoji", string(ev.Emoji)).
			Int("index", idx).
			Msg("prompt resolved")
		return Result{Outcome: Selected, Index: idx, Emoji: ev.Emoji}, nil
	case <-deadline.Expire():
		sub.Cancel()
		return Result{Outcome: TimedOut}, nil
	case <-ctx.Done():
		deadline.Cancel()
		sub.Cancel()
		return Result{Outcome: Cancelled}, nil
	}
}

// YesNo is a two-emoji prompt with a check mark for yes and a cross mark for
// no. The bool is true only when the user picked yes.
func (e *Engine) YesNo(ctx context.Context, msg reaction.MessageRef, userID string, timeout time.Duration) (bool, Result, error) {
	res, err := e.Prompt(ctx, msg, userID, []reaction.Emoji{EmojiYes, EmojiNo}, timeout)
	if err != nil {
		return false, res, fmt.Errorf("prompt.Engine.YesNo: %w", err)
	}
	return res.Outcome == Selected && res.Index == 0, res, nil
}

// Message waits for the next message userID posts in channelID. A timeout is
// reported through the Result, not as an error. An Engine built without a
// message dispatcher returns reaction.ErrNoMessageStream.
func (e *Engine) Message(ctx context.Context, channelID, userID string, timeout time.Duration) (stream.PostedMessage, Result, error) {
	if e.messages == nil {
		return stream.PostedMessage{}, Result{}, fmt.Errorf("prompt.Engine.Message: %w", reaction.ErrNoMessageStream)
	}
	deadline, err := stream.NewDeadline(timeout)
	if err != nil {
		return stream.PostedMessage{}, Result{}, fmt.Errorf("prompt.Engine.Message: %w", err)
	}

	sub, err := e.messages.Subscribe(stream.MessageFilter{ChannelID: channelID, UserID: userID})
	if err != nil {
		deadline.Cancel()
		return stream.PostedMessage{}, Result{}, fmt.Errorf("prompt.Engine.Message: %w", err)
	}

	select {
	case m, ok := <-sub.Messages():
		deadline.Cancel()
		sub.Cancel()
		if !ok {
			return stream.PostedMessage{}, Result{}, fmt.Errorf("prompt.Engine.Message: %w", reaction.ErrStreamClosed)
		}
		return m, Result{Outcome: Selected}, nil
	case <-deadline.Expire():
		sub.Cancel()
		return stream.PostedMessage{}, Result{Outcome: TimedOut}, nil
	case <-ctx.Done():
		deadline.Cancel()
		sub.Cancel()
		return stream.PostedMessage{}, Result{Outcome: Cancelled}, nil
	}
}

// MessageContent is Message returning only the text of the user's reply.
func (e *Engine) MessageContent(ctx context.Context, channelID, userID string, timeout time.Duration) (string, Result, error) {
	m, res, err := e.Message(ctx, channelID, userID, timeout)
	if err != nil {
		return "", res, fmt.Errorf("prompt.Engine.MessageContent: %w", err)
	}
	return m.Content, res, nil
}
