package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/PJ1229/OOTD/internal/feed"
	"github.com/PJ1229/OOTD/internal/models"
)

var ErrRealtimeClosed = errors.New("realtime client is closed")

// notifyListener is the part of *pq.Listener the realtime client drives.
type notifyListener interface {
	Listen(channel string) error
	Unlisten(channel string) error
	Ping() error
	Close() error
	NotificationChannel() <-chan *pq.Notification
}

// RealtimeClient fans Postgres NOTIFY payloads out to feed subscriptions.
// One listener connection serves every subscription in the process.
type RealtimeClient struct {
	listener notifyListener
	logger   zerolog.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewRealtimeClient(connectionString string, logger zerolog.Logger) *RealtimeClient {
	logger = logger.With().Str("component", "realtime").Logger()
	onEvent := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info().Msg("listener connected")
		case pq.ListenerEventDisconnected:
			logger.Warn().Err(err).Msg("listener disconnected")
		case pq.ListenerEventReconnected:
			logger.Info().Msg("listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Error().Err(err).Msg("listener connection attempt failed")
		}
	}
	return newRealtimeClient(pq.NewListener(connectionString, 10*time.Second, time.Minute, onEvent), logger)
}

func newRealtimeClient(l notifyListener, logger zerolog.Logger) *RealtimeClient {
	r := &RealtimeClient{
		listener: l,
		logger:   logger,
		subs:     make(map[string]map[*subscription]struct{}),
		done:     make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *RealtimeClient) run() {
	defer r.wg.Done()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.done:
			return
		case n := <-r.listener.NotificationChannel():
			if n == nil {
				// connection was re-established; events in between are lost
				continue
			}
			r.dispatch(n)
		case <-ping.C:
			go func() {
				if err := r.listener.Ping(); err != nil {
					r.logger.Warn().Err(err).Msg("listener ping failed")
				}
			}()
		}
	}
}

// notification is the JSON body the posts trigger sends.
type notification struct {
	Type  feed.ChangeType `json:"type"`
	Table string          `json:"table"`
	New   *models.Post    `json:"new"`
	Old   *models.Post    `json:"old"`
}

func decodeNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("failed to decode notification: %w", err)
	}
	switch n.Type {
	case feed.Insert, feed.Update, feed.Delete:
	default:
		return n, fmt.Errorf("unknown change type %q", n.Type)
	}
	return n, nil
}

func (r *RealtimeClient) dispatch(n *pq.Notification) {
	msg, err := decodeNotification(n.Extra)
	if err != nil {
		r.logger.Warn().Err(err).Str("channel", n.Channel).Msg("dropping notification")
		return
	}
	change := feed.Change{Type: msg.Type, New: msg.New, Old: msg.Old}

	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs[n.Channel] {
		if sub.table != "" && msg.Table != "" && sub.table != msg.Table {
			continue
		}
		select {
		case sub.events <- change:
		case <-sub.quit:
		case <-r.done:
			return
		}
	}
}

// Subscribe starts delivering changes for key. The first subscription on a
// channel issues LISTEN; the last one to close issues UNLISTEN.
func (r *RealtimeClient) Subscribe(_ context.Context, key feed.Key) (feed.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRealtimeClosed
	}
	set, ok := r.subs[key.Channel]
	if !ok {
		if err := r.listener.Listen(key.Channel); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
			return nil, fmt.Errorf("failed to listen on %s: %w", key.Channel, err)
		}
		set = make(map[*subscription]struct{})
		r.subs[key.Channel] = set
	}

	sub := &subscription{
		client:  r,
		channel: key.Channel,
		table:   key.Table,
		events:  make(chan feed.Change, 64),
		quit:    make(chan struct{}),
	}
	set[sub] = struct{}{}
	return sub, nil
}

func (r *RealtimeClient) unsubscribe(sub *subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.subs[sub.channel]
	if _, ok := set[sub]; !ok {
		return nil
	}
	delete(set, sub)
	close(sub.events)

	if len(set) > 0 || r.closed {
		return nil
	}
	delete(r.subs, sub.channel)
	if err := r.listener.Unlisten(sub.channel); err != nil && !errors.Is(err, pq.ErrChannelNotOpen) {
		return fmt.Errorf("failed to unlisten %s: %w", sub.channel, err)
	}
	return nil
}

// Subscriptions is the number of open subscriptions on channel.
func (r *RealtimeClient) Subscriptions(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[channel])
}

// Close stops dispatching and closes the listener connection. Open
// subscriptions are closed as well.
func (r *RealtimeClient) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	for channel, set := range r.subs {
		for sub := range set {
			sub.closeOnce.Do(func() { close(sub.quit) })
			close(sub.events)
		}
		delete(r.subs, channel)
	}
	r.mu.Unlock()

	r.wg.Wait()
	return r.listener.Close()
}

type subscription struct {
	client  *RealtimeClient
	channel string
	table   string
	events  chan feed.Change
	quit    chan struct{}

	closeOnce sync.Once
}

func (s *subscription) Events() <-chan feed.Change { return s.events }

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.quit)
		err = s.client.unsubscribe(s)
	})
	return err
}

// PostsFeed is the feed source for the posts table: rows come from store and
// changes from the realtime client.
type PostsFeed struct {
	Store    PostStore
	Realtime *RealtimeClient
}

func (f *PostsFeed) Fetch(ctx context.Context, _ string) ([]models.Post, error) {
	return f.Store.ListPosts(ctx)
}

func (f *PostsFeed) Subscribe(ctx context.Context, key feed.Key) (feed.Subscription, error) {
	return f.Realtime.Subscribe(ctx, key)
}
