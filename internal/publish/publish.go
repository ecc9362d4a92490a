package publish

import (
	"sync"

	"github.com/rs/zerolog"
	"quoteticker/internal/provider"
)

// Handler receives published updates. It runs on the publishing goroutine
// and must return quickly.
type Handler func(provider.Update)

// Subscription identifies one registered handler.
type Subscription struct{ id uint64 }

type subscriber struct {
	id uint64
	h  Handler
}

// Publisher delivers each update synchronously to every current subscriber
// in subscription order. Nothing is buffered: late subscribers never see
// past updates.
type Publisher struct {
	log zerolog.Logger

	mu   sync.RWMutex
	next uint64
	subs []subscriber
}

func New(log zerolog.Logger) *Publisher {
	return &Publisher{log: log.With().Str("component", "publisher").Logger()}
}

func (p *Publisher) Subscribe(h Handler) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.subs = append(p.subs, subscriber{id: p.next, h: h})
	return Subscription{id: p.next}
}

// Unsubscribe removes the handler; it reports false if it was not registered.
func (p *Publisher) Unsubscribe(s Subscription) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subs {
		if sub.id == s.id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Publisher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Publish calls every handler registered at the time of the call.
// A panicking handler is logged and skipped.
func (p *Publisher) Publish(u provider.Update) {
	p.mu.RLock()
	subs := make([]subscriber, len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	p.log.Debug().
		Str("symbol", u.Symbol).
		Str("price", u.Price).
		Str("delta", u.Delta).
		Int("subscribers", len(subs)).
		Msg("publishing update")

	for _, s := range subs {
		p.deliver(s, u)
	}
}

func (p *Publisher) deliver(s subscriber, u provider.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Interface("panic", rec).Uint64("subscription", s.id).Msg("subscriber panicked")
		}
	}()
	s.h(u)
}
