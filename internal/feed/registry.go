package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type registryEntry struct {
	sync *Sync
	refs int
}

// Registry hands out one Sync per key. Every Acquire must be paired with a
// call to the returned release; the subscription is closed when the last
// holder releases it.
type Registry struct {
	source Source
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[Key]*registryEntry
}

func NewRegistry(source Source, logger zerolog.Logger) *Registry {
	return &Registry{
		source:  source,
		logger:  logger,
		entries: make(map[Key]*registryEntry),
	}
}

func (r *Registry) Acquire(ctx context.Context, key Key) (*Sync, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		s := NewSync(r.source, key, r.logger)
		if err := s.Start(ctx); err != nil {
			return nil, nil, err
		}
		entry = &registryEntry{sync: s}
		r.entries[key] = entry
		r.logger.Info().Str("feed", key.String()).Msg("feed subscription opened")
	}
	entry.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(key, entry) })
	}
	return entry.sync, release, nil
}

func (r *Registry) release(key Key, entry *registryEntry) {
	r.mu.Lock()
	entry.refs--
	if entry.refs > 0 || r.entries[key] != entry {
		r.mu.Unlock()
		return
	}
	delete(r.entries, key)
	r.mu.Unlock()

	if err := entry.sync.Close(); err != nil {
		r.logger.Warn().Err(err).Str("feed", key.String()).Msg("failed to close feed subscription")
		return
	}
	r.logger.Info().Str("feed", key.String()).Msg("feed subscription closed")
}

// Active is the number of open subscriptions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close tears down every subscription regardless of holders.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[Key]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		_ = entry.sync.Close()
	}
}
