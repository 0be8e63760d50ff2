package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PJ1229/OOTD/internal/models"
)

func post(id int64, likes, dislikes int) *models.Post {
	return &models.Post{ID: id, Image: "https://img.example.com/" + string(rune('a'+id)), Likes: likes, Dislikes: dislikes}
}

func ids(posts []models.Post) []int64 {
	out := make([]int64, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestList_Apply(t *testing.T) {
	l := NewList()

	assert.True(t, l.Apply(Change{Type: Insert, New: post(1, 0, 0)}))
	assert.True(t, l.Apply(Change{Type: Insert, New: post(2, 0, 0)}))
	assert.True(t, l.Apply(Change{Type: Insert, New: post(3, 0, 0)}))
	assert.Equal(t, []int64{1, 2, 3}, ids(l.Snapshot()))

	// update replaces in place
	assert.True(t, l.Apply(Change{Type: Update, New: post(2, 5, 1)}))
	snap := l.Snapshot()
	assert.Equal(t, []int64{1, 2, 3}, ids(snap))
	assert.Equal(t, 5, snap[1].Likes)

	// update for an unknown id appends
	assert.True(t, l.Apply(Change{Type: Update, New: post(4, 0, 0)}))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(l.Snapshot()))

	// insert for a known id replaces
	assert.True(t, l.Apply(Change{Type: Insert, New: post(1, 9, 0)}))
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, 9, l.Snapshot()[0].Likes)

	assert.True(t, l.Apply(Change{Type: Delete, Old: post(3, 0, 0)}))
	assert.Equal(t, []int64{1, 2, 4}, ids(l.Snapshot()))

	assert.False(t, l.Apply(Change{Type: Delete, Old: post(42, 0, 0)}))
	assert.Equal(t, []int64{1, 2, 4}, ids(l.Snapshot()))

	assert.False(t, l.Apply(Change{Type: "TRUNCATE"}))
}

func TestList_LoadKeepsFetchPushRaceDuplicates(t *testing.T) {
	l := NewList()
	l.Apply(Change{Type: Insert, New: post(7, 0, 0)})

	dup := l.Load([]models.Post{*post(6, 0, 0), *post(7, 0, 0)})

	assert.Equal(t, 1, dup)
	assert.Equal(t, 1, l.Duplicates())
	assert.Equal(t, []int64{7, 6, 7}, ids(l.Snapshot()))
}

func TestTop(t *testing.T) {
	posts := []models.Post{*post(1, 1, 0), *post(2, 10, 2), *post(3, 4, 4), *post(4, 3, 0), *post(5, 1, 0)}

	top := Top(posts, 3)
	assert.Equal(t, []int64{2, 4, 1}, ids(top))
	assert.Len(t, Top(posts[:2], 3), 2)
}

type fakeSub struct {
	events chan Change
	once   sync.Once
}

func (s *fakeSub) Events() <-chan Change { return s.events }
func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.events) })
	return nil
}

type fakeSource struct {
	mu         sync.Mutex
	rows       []models.Post
	fetchErr   error
	subscribes int
	subs       []*fakeSub
	fetchGate  chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context, _ string) ([]models.Post, error) {
	if f.fetchGate != nil {
		select {
		case <-f.fetchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rows, f.fetchErr
}

func (f *fakeSource) Subscribe(_ context.Context, _ Key) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	sub := &fakeSub{events: make(chan Change, 8)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSource) lastSub() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

var testKey = Key{Channel: "posts_changes", Table: "posts"}

func TestSync_EventBeforeFetchCompletes(t *testing.T) {
	source := &fakeSource{rows: []models.Post{*post(1, 0, 0)}, fetchGate: make(chan struct{})}
	s := NewSync(source, testKey, zerolog.Nop())

	started := make(chan error, 1)
	go func() { started <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.subs) == 1
	}, time.Second, time.Millisecond)
	source.lastSub().events <- Change{Type: Insert, New: post(2, 0, 0)}
	require.Eventually(t, func() bool { return s.List().Len() == 1 }, time.Second, time.Millisecond)

	close(source.fetchGate)
	require.NoError(t, <-started)
	assert.Equal(t, []int64{2, 1}, ids(s.Snapshot()))
	require.NoError(t, s.Close())
}

func TestSync_WatchReceivesChanges(t *testing.T) {
	source := &fakeSource{rows: []models.Post{*post(1, 0, 0)}}
	s := NewSync(source, testKey, zerolog.Nop())
	require.NoError(t, s.Start(context.Background()))

	updates, stop := s.Watch()
	defer stop()
	assert.Equal(t, []int64{1}, ids(<-updates))

	source.lastSub().events <- Change{Type: Insert, New: post(2, 0, 0)}
	select {
	case snap := <-updates:
		assert.Equal(t, []int64{1, 2}, ids(snap))
	case <-time.After(time.Second):
		t.Fatal("no snapshot after insert")
	}

	require.NoError(t, s.Close())
	_, open := <-updates
	assert.False(t, open)
}

func TestSync_FetchErrorClosesSubscription(t *testing.T) {
	source := &fakeSource{fetchErr: errors.New("permission denied for table posts")}
	s := NewSync(source, testKey, zerolog.Nop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	source.mu.Lock()
	defer source.mu.Unlock()
	if len(source.subs) > 0 {
		_, open := <-source.subs[0].events
		assert.False(t, open)
	}
}

func TestRegistry_OneSubscriptionPerKey(t *testing.T) {
	source := &fakeSource{}
	reg := NewRegistry(source, zerolog.Nop())

	first, releaseFirst, err := reg.Acquire(context.Background(), testKey)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, release, err := reg.Acquire(context.Background(), testKey)
		require.NoError(t, err)
		assert.Same(t, first, again)
		release()
		release()
	}

	assert.Equal(t, 1, source.subscribes)
	assert.Equal(t, 1, reg.Active())

	releaseFirst()
	assert.Equal(t, 0, reg.Active())
	_, open := <-source.lastSub().events
	assert.False(t, open)

	_, release, err := reg.Acquire(context.Background(), testKey)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 2, source.subscribes)
}
