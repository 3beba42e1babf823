package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/internal/game"
)

// subscriberBuffer bounds how far a subscriber may fall behind before events
// are dropped for it.
const subscriberBuffer = 32

// Broker fans game events out to per-game subscriber channels. It implements
// game.Publisher; sends never block, a full subscriber just misses events
// until it catches up (the next state snapshot makes it whole).
type Broker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan game.Event]struct{}
	log  logrus.FieldLogger
}

func NewBroker(log logrus.FieldLogger) *Broker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Broker{
		subs: make(map[uuid.UUID]map[chan game.Event]struct{}),
		log:  log,
	}
}

// Subscribe registers a new listener for one game's events.
func (b *Broker) Subscribe(gameID uuid.UUID) chan game.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan game.Event, subscriberBuffer)
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan game.Event]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel. Safe to call twice.
func (b *Broker) Unsubscribe(gameID uuid.UUID, ch chan game.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[gameID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, gameID)
	}
}

// CloseGame drops every subscriber of one game.
func (b *Broker) CloseGame(gameID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[gameID] {
		close(ch)
	}
	delete(b.subs, gameID)
}

// Publish implements game.Publisher.
func (b *Broker) Publish(gameID uuid.UUID, ev game.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[gameID] {
		select {
		case ch <- ev:
		default:
			b.log.WithFields(logrus.Fields{
				"game_id": gameID,
				"type":    ev.Type,
			}).Debug("dropping event for slow subscriber")
		}
	}
}

// fanout combines several publishers into one.
type fanout []game.Publisher

func (f fanout) Publish(gameID uuid.UUID, ev game.Event) {
	for _, p := range f {
		p.Publish(gameID, ev)
	}
}

// CombinePublishers merges publishers, skipping nils.
func CombinePublishers(pubs ...game.Publisher) game.Publisher {
	var f fanout
	for _, p := range pubs {
		if p != nil {
			f = append(f, p)
		}
	}
	return f
}
