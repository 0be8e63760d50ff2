package swipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PJ1229/OOTD/internal/models"
)

var (
	ErrNoCard   = errors.New("no more posts to swipe")
	ErrSettling = errors.New("previous swipe is still settling")
)

// DefaultSettleDelay is how long a decided card stays on screen before the
// next one is shown.
const DefaultSettleDelay = 300 * time.Millisecond

// Voter persists a like or dislike and returns the stored row.
type Voter interface {
	Vote(ctx context.Context, postID int64, like bool) (*models.Post, error)
}

// VoteResult is the outcome of one swipe decision.
type VoteResult struct {
	Direction Direction
	Applied   bool
	Post      models.Post
	Err       error
}

// Deck walks a user through posts one card at a time.
type Deck struct {
	voter     Voter
	settle    time.Duration
	afterFunc func(time.Duration, func())

	mu       sync.Mutex
	cards    []models.Post
	index    int
	settling bool
	gesture  *Gesture
}

type DeckOption func(*Deck)

// WithAfterFunc replaces time.AfterFunc for scheduling the advance.
func WithAfterFunc(fn func(time.Duration, func())) DeckOption {
	return func(d *Deck) { d.afterFunc = fn }
}

func NewDeck(cards []models.Post, voter Voter, threshold float64, settle time.Duration, opts ...DeckOption) *Deck {
	d := &Deck{
		voter:     voter,
		settle:    settle,
		afterFunc: scheduleAfter,
		cards:     append([]models.Post(nil), cards...),
		gesture:   NewGesture(threshold),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Current returns the card on top. ok is false once every card has been
// swiped.
func (d *Deck) Current() (post models.Post, index int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.index >= len(d.cards) {
		return models.Post{}, d.index, false
	}
	return d.cards[d.index], d.index, true
}

// Refresh merges the latest rows: known ids are replaced in place and new
// ids are appended behind the current card.
func (d *Deck) Refresh(posts []models.Post) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pos := make(map[int64]int, len(d.cards))
	for i, c := range d.cards {
		pos[c.ID] = i
	}
	for _, p := range posts {
		if i, ok := pos[p.ID]; ok {
			d.cards[i] = p
			continue
		}
		pos[p.ID] = len(d.cards)
		d.cards = append(d.cards, p)
	}
}

// ReleaseResult is what a finished drag produced.
type ReleaseResult struct {
	Direction Direction
	Offset    Point
	Vote      *VoteResult
}

// Release replays a drag of (dx, dy) from the card origin and, if it crosses
// the threshold, casts the vote.
func (d *Deck) Release(ctx context.Context, dx, dy float64) (ReleaseResult, error) {
	d.mu.Lock()
	if d.index >= len(d.cards) {
		d.mu.Unlock()
		return ReleaseResult{}, ErrNoCard
	}
	d.gesture.Down(Point{})
	d.gesture.Move(Point{X: dx, Y: dy})
	dir, offset := d.gesture.Release()
	d.mu.Unlock()

	res := ReleaseResult{Direction: dir, Offset: offset}
	if dir == None {
		return res, nil
	}
	vote, err := d.Swipe(ctx, dir)
	if err != nil {
		return res, err
	}
	res.Vote = &vote
	if !vote.Applied {
		d.mu.Lock()
		d.gesture.Reset()
		res.Offset = d.gesture.Offset()
		d.mu.Unlock()
	}
	return res, nil
}

// Swipe votes on the current card. The count is bumped before the vote is
// sent and reverted if it fails, in which case the card stays current. A
// successful vote advances the deck after the settle delay.
func (d *Deck) Swipe(ctx context.Context, dir Direction) (VoteResult, error) {
	if dir != Left && dir != Right {
		return VoteResult{}, fmt.Errorf("invalid swipe direction %q", dir)
	}

	d.mu.Lock()
	if d.index >= len(d.cards) {
		d.mu.Unlock()
		return VoteResult{}, ErrNoCard
	}
	if d.settling {
		d.mu.Unlock()
		return VoteResult{}, ErrSettling
	}
	d.settling = true
	i := d.index
	bump(&d.cards[i], dir, 1)
	id := d.cards[i].ID
	d.mu.Unlock()

	stored, err := d.voter.Vote(ctx, id, dir == Right)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		bump(&d.cards[i], dir, -1)
		d.settling = false
		return VoteResult{Direction: dir, Post: d.cards[i], Err: err}, nil
	}
	if stored != nil {
		d.cards[i] = *stored
	}
	d.afterFunc(d.settle, d.advance)
	return VoteResult{Direction: dir, Applied: true, Post: d.cards[i]}, nil
}

func scheduleAfter(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

func (d *Deck) advance() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index++
	d.settling = false
	d.gesture.Reset()
}

func bump(p *models.Post, dir Direction, delta int) {
	if dir == Right {
		p.Likes += delta
	} else {
		p.Dislikes += delta
	}
}

// Decks keeps one deck per user.
type Decks struct {
	voter     Voter
	threshold float64
	settle    time.Duration

	mu    sync.Mutex
	decks map[uuid.UUID]*Deck
}

func NewDecks(voter Voter, threshold float64, settle time.Duration) *Decks {
	return &Decks{
		voter:     voter,
		threshold: threshold,
		settle:    settle,
		decks:     make(map[uuid.UUID]*Deck),
	}
}

// Get returns the user's deck, building it from load on first use.
func (ds *Decks) Get(ctx context.Context, userID uuid.UUID, load func(context.Context) ([]models.Post, error)) (*Deck, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if deck, ok := ds.decks[userID]; ok {
		return deck, nil
	}
	posts, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	deck := NewDeck(posts, ds.voter, ds.threshold, ds.settle)
	ds.decks[userID] = deck
	return deck, nil
}

// Reset forgets a user's deck so the next Get starts from the top.
func (ds *Decks) Reset(userID uuid.UUID) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.decks, userID)
}
