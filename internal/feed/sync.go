package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/PJ1229/OOTD/internal/models"
)

var ErrClosed = errors.New("feed sync is closed")

// Key identifies one change feed: a notification channel and the table it
// reports on.
type Key struct {
	Channel string
	Table   string
}

func (k Key) String() string {
	return k.Channel + "/" + k.Table
}

// Subscription delivers change events until closed. Close must close the
// Events channel.
type Subscription interface {
	Events() <-chan Change
	Close() error
}

// Source is the backend behind a feed.
type Source interface {
	Fetch(ctx context.Context, table string) ([]models.Post, error)
	Subscribe(ctx context.Context, key Key) (Subscription, error)
}

// Sync keeps one List in step with one Source subscription.
type Sync struct {
	key    Key
	source Source
	list   *List
	logger zerolog.Logger

	mu       sync.Mutex
	sub      Subscription
	watchers map[int]chan []models.Post
	nextID   int
	closed   bool
	done     chan struct{}
}

func NewSync(source Source, key Key, logger zerolog.Logger) *Sync {
	return &Sync{
		key:      key,
		source:   source,
		list:     NewList(),
		logger:   logger.With().Str("feed", key.String()).Logger(),
		watchers: make(map[int]chan []models.Post),
		done:     make(chan struct{}),
	}
}

// Start subscribes and issues the initial fetch concurrently. Events can be
// applied before the fetch returns.
func (s *Sync) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sub, err := s.source.Subscribe(gctx, s.key)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", s.key, err)
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = sub.Close()
			return ErrClosed
		}
		s.sub = sub
		s.mu.Unlock()
		go s.consume(sub)
		return nil
	})

	g.Go(func() error {
		rows, err := s.source.Fetch(gctx, s.key.Table)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", s.key.Table, err)
		}
		if dup := s.list.Load(rows); dup > 0 {
			s.logger.Warn().Int("duplicates", dup).Msg("initial fetch overlapped pushed rows")
		}
		s.logger.Debug().Int("rows", len(rows)).Msg("initial fetch loaded")
		s.broadcast()
		return nil
	})

	if err := g.Wait(); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func (s *Sync) consume(sub Subscription) {
	defer close(s.done)
	for change := range sub.Events() {
		if s.list.Apply(change) {
			s.broadcast()
		}
	}
}

// Snapshot returns the current rows in list order.
func (s *Sync) Snapshot() []models.Post {
	return s.list.Snapshot()
}

func (s *Sync) List() *List {
	return s.list
}

// Watch registers a listener that receives the latest snapshot after every
// change. Slow listeners only see the newest snapshot.
func (s *Sync) Watch() (<-chan []models.Post, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan []models.Post, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.list.Snapshot()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if w, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(w)
			}
		})
	}
}

func (s *Sync) broadcast() {
	snap := s.list.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close releases the subscription and every watcher.
func (s *Sync) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	err := sub.Close()
	<-s.done
	return err
}
