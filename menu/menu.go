// Package menu implements a reaction-navigated, paginated message: a finite
// state loop that renders the current page, waits for a navigation reaction
// raced against a deadline, transitions, and repeats until quit or timeout.
package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/waitfor/prompt"
	"github.com/gosuda/waitfor/reaction"
	"github.com/gosuda/waitfor/stream"
)

// Page is one renderable unit of a menu. The engine never inspects it; it is
// handed to the Renderer as-is. Embed is an optional platform-specific embed
// payload understood by the Renderer.
type Page struct {
	Content string
	Embed   any
}

// Renderer draws a page into the menu's message. indicator is a page-number
// line ("Page 2/5") when the option is on, "" otherwise.
type Renderer interface {
	Render(ctx context.Context, msg reaction.MessageRef, page Page, indicator string) error
}

// CleanupPolicy decides what happens to the menu message when the loop ends.
type CleanupPolicy int

const (
	// RemoveReactions strips all reactions and leaves the message.
	RemoveReactions CleanupPolicy = iota
	// DeleteMessage deletes the menu message.
	DeleteMessage
	// LeaveAsIs leaves message and reactions untouched.
	LeaveAsIs
)

// State is a terminal state of a menu run.
type State int

const (
	// StateQuit means the user pressed the quit control.
	StateQuit State = iota
	// StateTimedOut means the session deadline fired.
	StateTimedOut
	// StateCancelled means the caller's context was cancelled or the event
	// stream shut down mid-run.
	StateCancelled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateQuit:
		return "quit"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Controls maps navigation roles to emoji. A zero-valued role is disabled.
type Controls struct {
	First    reaction.Emoji
	Previous reaction.Emoji
	Next     reaction.Emoji
	Last     reaction.Emoji
	Quit     reaction.Emoji
	Jump     reaction.Emoji
}

// DefaultControls returns the classic three-control layout: previous, quit,
// next.
func DefaultControls() Controls {
	return Controls{
		Previous: "◀", // black left-pointing triangle
		Quit:     "❌", // cross mark
		Next:     "▶", // black right-pointing triangle
	}
}

// FullControls adds first/last skips and the jump-to control.
func FullControls() Controls {
	c := DefaultControls()
	c.First = "⏮"    // previous track
	c.Last = "⏭"     // next track
	c.Jump = "\U0001F522" // input numbers
	return c
}

type role int

const (
	roleNone role = iota
	roleFirst
	rolePrevious
	roleNext
	roleLast
	roleQuit
	roleJump
)

// emojis returns the enabled control emoji in display order, left to right.
func (c Controls) emojis() []reaction.Emoji {
	ordered := []reaction.Emoji{c.First, c.Previous, c.Quit, c.Next, c.Last, c.Jump}
	out := make([]reaction.Emoji, 0, len(ordered))
	for _, e := range ordered {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (c Controls) role(e reaction.Emoji) role {
	switch e {
	case "":
		return roleNone
	case c.First:
		return roleFirst
	case c.Previous:
		return rolePrevious
	case c.Next:
		return roleNext
	case c.Last:
		return roleLast
	case c.Quit:
		return roleQuit
	case c.Jump:
		return roleJump
	default:
		return roleNone
	}
}

// Options configures one menu run.
type Options struct {
	// Timeout is the session budget. By default it is a single wall-clock
	// budget from menu start, not refreshed by navigation.
	Timeout time.Duration
	// IdleTimeout re-arms the deadline after each accepted reaction, turning
	// Timeout into an inactivity limit instead of a session budget.
	IdleTimeout bool
	// Controls maps navigation roles to emoji.
	Controls Controls
	// NonBlocking attaches control reactions from a detached task so the
	// first page does not wait for them.
	NonBlocking bool
	// PageIndicator passes a "Page n/m" line to the renderer.
	PageIndicator bool
	// OnQuit selects the cleanup applied on every terminal path.
	OnQuit CleanupPolicy
	// StartPage is the 0-indexed page to open at.
	StartPage int
}

// DefaultOptions mirrors the historical defaults: 30 second budget,
// previous/quit/next controls, reactions removed on exit.
func DefaultOptions() Options {
	return Options{
		Timeout:  30 * time.Second,
		Controls: DefaultControls(),
		OnQuit:   RemoveReactions,
	}
}

// Engine runs menus. The jump-to control needs the prompt engine for its
// follow-up page-number question; pass nil to disable jumping.
type Engine struct {
	reactions *reaction.Manager
	events    *stream.Dispatcher
	prompts   *prompt.Engine
	renderer  Renderer
	log       zerolog.Logger
}

// NewEngine creates a menu Engine.
func NewEngine(reactions *reaction.Manager, events *stream.Dispatcher, prompts *prompt.Engine, renderer Renderer, log zerolog.Logger) *Engine {
	return &Engine{
		reactions: reactions,
		events:    events,
		prompts:   prompts,
		renderer:  renderer,
		log:       log,
	}
}

// Run drives the menu over msg until a terminal state. The loop renders the
// current page, waits for a control reaction from userID raced against the
// deadline, clamps navigation into [0, len(pages)), and exits on quit,
// timeout, or caller cancellation. All terminal paths apply the OnQuit
// cleanup. A single-page menu still honors quit and timeout.
func (e *Engine) Run(ctx context.Context, msg reaction.MessageRef, userID string, pages []Page, opts Options) (State, error) {
	if len(pages) == 0 {
		return StateCancelled, fmt.Errorf("menu.Engine.Run: %w", reaction.ErrNoPages)
	}
	if opts.StartPage < 0 || opts.StartPage >= len(pages) {
		return StateCancelled, fmt.Errorf("menu.Engine.Run: start page %d: %w", opts.StartPage, reaction.ErrPageOutOfRange)
	}
	emojis := opts.Controls.emojis()
	if err := reaction.ValidateEmojiSet(emojis); err != nil {
		return StateCancelled, fmt.Errorf("menu.Engine.Run: controls: %w", err)
	}
	deadline, err := stream.NewDeadline(opts.Timeout)
	if err != nil {
		return StateCancelled, fmt.Errorf("menu.Engine.Run: %w", err)
	}

	idx := opts.StartPage
	if err := e.render(ctx, msg, pages, idx, opts); err != nil {
		deadline.Cancel()
		return StateCancelled, err
	}

	if opts.NonBlocking {
		e.reactions.AttachAsync(ctx, msg, emojis)
	} else if err := e.reactions.Attach(ctx, msg, emojis); err != nil {
		deadline.Cancel()
		e.cleanup(ctx, msg, opts.OnQuit)
		return StateCancelled, fmt.Errorf("menu.Engine.Run: %w", err)
	}

	sub, err := e.events.Subscribe(reaction.Filter{Message: msg, UserID: userID, Emojis: emojis})
	if err != nil {
		deadline.Cancel()
		e.cleanup(ctx, msg, opts.OnQuit)
		return StateCancelled, fmt.Errorf("menu.Engine.Run: %w", err)
	}

	state, runErr := e.loop(ctx, msg, userID, pages, opts, sub, deadline, idx)

	deadline.Cancel()
	sub.Cancel()
	e.cleanup(ctx, msg, opts.OnQuit)

	e.log.Debug().
		Str("message_id", msg.MessageID).
		Str("user_id", userID).
		Stringer("state", state).
		Msg("menu finished")

	return state, runErr
}

func (e *Engine) loop(ctx context.Context, msg reaction.MessageRef, userID string, pages []Page, opts Options, sub *stream.Subscription, deadline *stream.Deadline, idx int) (State, error) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return StateCancelled, fmt.Errorf("menu.Engine.Run: %w", reaction.ErrStreamClosed)
			}
			if opts.IdleTimeout {
				deadline.Reset(opts.Timeout)
			}
			// Let the user press the same control again.
			go e.reactions.Detach(context.WithoutCancel(ctx), msg, ev.Emoji, userID)

			switch opts.Controls.role(ev.Emoji) {
			case roleQuit:
				return StateQuit, nil
			case roleJump:
				target, jumped := e.promptJump(ctx, msg, userID, len(pages), opts.Timeout)
				if !jumped || target == idx {
					continue
				}
				idx = target
			case roleFirst, rolePrevious, roleNext, roleLast:
				next := navigate(opts.Controls.role(ev.Emoji), idx, len(pages))
				if next == idx {
					// Already at the bound; no redraw, no deadline touch.
					continue
				}
				idx = next
			default:
				continue
			}

			if err := e.render(ctx, msg, pages, idx, opts); err != nil {
				return StateCancelled, err
			}
		case <-deadline.Expire():
			return StateTimedOut, nil
		case <-ctx.Done():
			return StateCancelled, nil
		}
	}
}

// navigate computes the target page for a movement role, clamped into
// [0, count). Out-of-range moves are no-ops rather than errors.
func navigate(r role, idx, count int) int {
	switch r {
	case roleFirst:
		return 0
	case rolePrevious:
		return max(idx-1, 0)
	case roleNext:
		return min(idx+1, count-1)
	case roleLast:
		return count - 1
	default:
		return idx
	}
}

func (e *Engine) render(ctx context.Context, msg reaction.MessageRef, pages []Page, idx int, opts Options) error {
	indicator := ""
	if opts.PageIndicator {
		indicator = fmt.Sprintf("Page %d/%d", idx+1, len(pages))
	}
	if err := e.renderer.Render(ctx, msg, pages[idx], indicator); err != nil {
		return fmt.Errorf("menu.Engine.Run: render page %d: %w", idx, err)
	}
	return nil
}

// promptJump asks the user for a 1-based page number via a follow-up message
// prompt. Invalid or out-of-range input is ignored, not an error.
func (e *Engine) promptJump(ctx context.Context, msg reaction.MessageRef, userID string, pageCount int, timeout time.Duration) (int, bool) {
	if e.prompts == nil {
		return 0, false
	}
	content, res, err := e.prompts.MessageContent(ctx, msg.ChannelID, userID, timeout)
	if err != nil || res.Outcome != prompt.Selected {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil || n < 1 || n > pageCount {
		e.log.Debug().Str("input", content).Msg("ignoring invalid jump target")
		return 0, false
	}
	return n - 1, true
}

func (e *Engine) cleanup(ctx context.Context, msg reaction.MessageRef, policy CleanupPolicy) {
	ctx = context.WithoutCancel(ctx)
	switch policy {
	case DeleteMessage:
		e.reactions.Delete(ctx, msg)
	case RemoveReactions:
		e.reactions.Clear(ctx, msg)
	case LeaveAsIs:
	}
}
