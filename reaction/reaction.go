// Package reaction defines the data model for reaction-driven interactions:
// message references, emoji, reaction events, event filters, and the Manager
// that attaches and removes reactions through a platform action client.
package reaction

// MessageRef identifies one message on the chat platform.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Emoji is the platform API name of an emoji (a unicode literal or a custom
// emoji identifier such as "name:id" on Discord).
type Emoji string

// Action distinguishes a reaction being added from one being removed.
type Action int

const (
	// ReactionAdded means a user attached the emoji to the message.
	ReactionAdded Action = iota
	// ReactionRemoved means a user removed their emoji from the message.
	ReactionRemoved
)

// Event is one occurrence of a user adding or removing a reaction.
// Events are produced by a platform adapter and consumed read-only.
type Event struct {
	Message MessageRef
	UserID  string
	Emoji   Emoji
	Action  Action
}

// Filter narrows the reaction event stream to one (message, user) pair and a
// set of legal emoji. A Filter is built once per prompt/menu run and is
// immutable afterwards.
type Filter struct {
	Message MessageRef
	UserID  string
	Emojis  []Emoji
	// IncludeRemovals accepts ReactionRemoved events as well as additions.
	IncludeRemovals bool
}

// Matches reports whether ev passes the filter.
func (f Filter) Matches(ev Event) bool {
	if ev.Message != f.Message || ev.UserID != f.UserID {
		return false
	}
	if ev.Action == ReactionRemoved && !f.IncludeRemovals {
		return false
	}
	_, ok := f.Index(ev.Emoji)
	return ok
}

// Index returns the position of e in the filter's emoji set, preserving the
// order the caller supplied. Callers branch on this index, so it is stable
// for the lifetime of the filter.
func (f Filter) Index(e Emoji) (int, bool) {
	for i, candidate := range f.Emojis {
		if candidate == e {
			return i, true
		}
	}
	return 0, false
}

// ValidateEmojiSet rejects empty emoji sets and sets containing duplicates.
func ValidateEmojiSet(emojis []Emoji) error {
	if len(emojis) == 0 {
		return ErrEmptyEmojiSet
	}
	seen := make(map[Emoji]struct{}, len(emojis))
	for _, e := range emojis {
		if _, dup := seen[e]; dup {
			return ErrDuplicateEmoji
		}
		seen[e] = struct{}{}
	}
	return nil
}
