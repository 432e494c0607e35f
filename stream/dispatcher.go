// Package stream provides cancellable, filtered views over the platform's
// push-based event streams, plus the one-shot deadline they are raced
// against. A platform adapter feeds raw events into a Dispatcher; each
// running prompt or menu holds exactly one Subscription narrowed to its own
// message and user.
package stream

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/waitfor/reaction"
)

// subscriptionBuffer bounds how many undelivered events a subscription may
// hold. The engines only look at the first matching event, so a small buffer
// is enough; overflow is dropped rather than blocking the gateway.
const subscriptionBuffer = 16

// Dispatcher fans reaction events out to subscriptions. The registry is
// keyed by message so delivery does not scan every subscriber per event.
type Dispatcher struct {
	log zerolog.Logger

	mu     sync.RWMutex
	closed bool
	subs   map[reaction.MessageRef]map[uuid.UUID]*Subscription
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:  log,
		subs: make(map[reaction.MessageRef]map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a filtered view over the reaction stream. It returns
// reaction.ErrStreamClosed after Close.
func (d *Dispatcher) Subscribe(f reaction.Filter) (*Subscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, reaction.ErrStreamClosed
	}

	s := &Subscription{
		id:         uuid.New(),
		filter:     f,
		events:     make(chan reaction.Event, subscriptionBuffer),
		dispatcher: d,
	}

	byMsg := d.subs[f.Message]
	if byMsg == nil {
		byMsg = make(map[uuid.UUID]*Subscription)
		d.subs[f.Message] = byMsg
	}
	byMsg[s.id] = s

	return s, nil
}

// Dispatch delivers ev to every matching subscription on its message, in
// arrival order. Called by the platform adapter's gateway handler.
func (d *Dispatcher) Dispatch(ev reaction.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, s := range d.subs[ev.Message] {
		if !s.filter.Matches(ev) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			d.log.Debug().
				Str("message_id", ev.Message.MessageID).
				Str("user_id", ev.UserID).
				Msg("subscription buffer full, dropping reaction event")
		}
	}
}

// Close cancels every subscription and rejects new ones. Used on bot
// shutdown. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true

	var all []*Subscription
	for _, byMsg := range d.subs {
		for _, s := range byMsg {
			all = append(all, s)
		}
	}
	d.subs = make(map[reaction.MessageRef]map[uuid.UUID]*Subscription)
	d.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}
}

// Subscribers reports how many subscriptions are registered for msg.
func (d *Dispatcher) Subscribers(msg reaction.MessageRef) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[msg])
}

func (d *Dispatcher) remove(msg reaction.MessageRef, id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byMsg := d.subs[msg]
	delete(byMsg, id)
	if len(byMsg) == 0 {
		delete(d.subs, msg)
	}
}

// Subscription is one registered view over the reaction stream. It is owned
// by a single prompt/menu run and must be cancelled when the run ends.
type Subscription struct {
	id         uuid.UUID
	filter     reaction.Filter
	events     chan reaction.Event
	dispatcher *Dispatcher
	cancel     sync.Once
}

// Events returns the delivery channel. It is closed by Cancel; events still
// buffered at that point are discarded with it.
func (s *Subscription) Events() <-chan reaction.Event {
	return s.events
}

// Cancel unregisters the subscription. Once Cancel returns no further event
// is delivered: removal happens under the registry lock that delivery also
// holds, and events still buffered are discarded before the channel closes.
// Idempotent.
func (s *Subscription) Cancel() {
	s.cancel.Do(func() {
		s.dispatcher.remove(s.filter.Message, s.id)
		// No sender remains once remove returns; drain what was buffered so
		// a reader only observes the close.
		for {
			select {
			case <-s.events:
			default:
				close(s.events)
				return
			}
		}
	})
}
