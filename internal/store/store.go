package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"quoteticker/internal/provider"
)

// LastQuoteKey is the key the last published quote lives under.
const LastQuoteKey = "last_quote"

// Store keeps the last known quote across restarts.
type Store interface {
	Load(ctx context.Context) (provider.Update, bool, error)
	Save(ctx context.Context, u provider.Update) error
}

// Memory is an in-process Store.
type Memory struct {
	mu  sync.RWMutex
	u   provider.Update
	set bool
}

func (m *Memory) Load(_ context.Context) (provider.Update, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.u, m.set, nil
}

func (m *Memory) Save(_ context.Context, u provider.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u, m.set = u, true
	return nil
}

// Subscriber returns a publish handler writing every update through st.
// Save failures are logged; the previous value stays in place.
func Subscriber(st Store, log zerolog.Logger) func(provider.Update) {
	log = log.With().Str("component", "store").Logger()
	return func(u provider.Update) {
		if err := st.Save(context.Background(), u); err != nil {
			log.Error().Err(err).Str("symbol", u.Symbol).Msg("saving last quote")
		}
	}
}
