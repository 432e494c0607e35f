package stream

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/waitfor/reaction"
)

// PostedMessage is a message a user posted in a channel, as seen by the
// gateway. It powers message prompts (wait for the user's next message) and
// the menu jump-to step.
type PostedMessage struct {
	ChannelID string
	MessageID string
	UserID    string
	Content   string
}

// MessageFilter narrows the message stream to one (channel, user) pair.
type MessageFilter struct {
	ChannelID string
	UserID    string
}

// Matches reports whether m passes the filter.
func (f MessageFilter) Matches(m PostedMessage) bool {
	return m.ChannelID == f.ChannelID && m.UserID == f.UserID
}

// MessageDispatcher fans posted-message events out to subscriptions, keyed
// by channel.
type MessageDispatcher struct {
	log zerolog.Logger

	mu     sync.RWMutex
	closed bool
	subs   map[string]map[uuid.UUID]*MessageSub
}

// NewMessageDispatcher creates an empty MessageDispatcher.
func NewMessageDispatcher(log zerolog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		log:  log,
		subs: make(map[string]map[uuid.UUID]*MessageSub),
	}
}

// Subscribe registers a filtered view over the message stream. It returns
// reaction.ErrStreamClosed after Close.
func (d *MessageDispatcher) Subscribe(f MessageFilter) (*MessageSub, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, reaction.ErrStreamClosed
	}

	s := &MessageSub{
		id:         uuid.New(),
		filter:     f,
		messages:   make(chan PostedMessage, subscriptionBuffer),
		dispatcher: d,
	}

	byChannel := d.subs[f.ChannelID]
	if byChannel == nil {
		byChannel = make(map[uuid.UUID]*MessageSub)
		d.subs[f.ChannelID] = byChannel
	}
	byChannel[s.id] = s

	return s, nil
}

// Dispatch delivers m to every matching subscription on its channel.
func (d *MessageDispatcher) Dispatch(m PostedMessage) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, s := range d.subs[m.ChannelID] {
		if !s.filter.Matches(m) {
			continue
		}
		select {
		case s.messages <- m:
		default:
			d.log.Debug().
				Str("channel_id", m.ChannelID).
				Str("user_id", m.UserID).
				Msg("subscription buffer full, dropping message event")
		}
	}
}

// Close cancels every subscription and rejects new ones.
func (d *MessageDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true

	var all []*MessageSub
	for _, byChannel := range d.subs {
		for _, s := range byChannel {
			all = append(all, s)
		}
	}
	d.subs = make(map[string]map[uuid.UUID]*MessageSub)
	d.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}
}

// Subscribers reports how many subscriptions are registered for channelID.
func (d *MessageDispatcher) Subscribers(channelID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[channelID])
}

func (d *MessageDispatcher) remove(channelID string, id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byChannel := d.subs[channelID]
	delete(byChannel, id)
	if len(byChannel) == 0 {
		delete(d.subs, channelID)
	}
}

// MessageSub is one registered view over the message stream.
type MessageSub struct {
	id         uuid.UUID
	filter     MessageFilter
	messages   chan PostedMessage
	dispatcher *MessageDispatcher
	cancel     sync.Once
}

// Messages returns the delivery channel. Closed by Cancel.
func (s *MessageSub) Messages() <-chan PostedMessage {
	return s.messages
}

// Cancel unregisters the subscription. Idempotent; no message is delivered
// after Cancel returns, and messages still buffered are discarded.
func (s *MessageSub) Cancel() {
	s.cancel.Do(func() {
		s.dispatcher.remove(s.filter.ChannelID, s.id)
		for {
			select {
			case <-s.messages:
			default:
				close(s.messages)
				return
			}
		}
	})
}
