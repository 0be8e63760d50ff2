package feed

import (
	"sort"
	"sync"

	"github.com/PJ1229/OOTD/internal/models"
)

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change is one pushed row event. New is set for inserts and updates, Old
// for deletes.
type Change struct {
	Type ChangeType   `json:"type"`
	New  *models.Post `json:"new,omitempty"`
	Old  *models.Post `json:"old,omitempty"`
}

// List is an ordered list of posts keyed by id. Rows from the initial fetch
// and from pushed events are merged the same way, so a row delivered by both
// before either lands is kept twice.
type List struct {
	mu         sync.RWMutex
	items      []models.Post
	duplicates int
}

func NewList() *List {
	return &List{}
}

func (l *List) indexOf(id int64) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Apply merges one change and reports whether the list changed.
func (l *List) Apply(c Change) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch c.Type {
	case Insert, Update:
		if c.New == nil {
			return false
		}
		if i := l.indexOf(c.New.ID); i >= 0 {
			l.items[i] = *c.New
			return true
		}
		l.items = append(l.items, *c.New)
		return true
	case Delete:
		if c.Old == nil {
			return false
		}
		i := l.indexOf(c.Old.ID)
		if i < 0 {
			return false
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		return true
	}
	return false
}

// Load appends fetched rows without matching them against rows that pushed
// events already added. It returns how many ids were already present.
func (l *List) Load(rows []models.Post) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dup := 0
	for _, row := range rows {
		if l.indexOf(row.ID) >= 0 {
			dup++
		}
		l.items = append(l.items, row)
	}
	l.duplicates += dup
	return dup
}

func (l *List) Snapshot() []models.Post {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Post, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Duplicates is the number of fetched rows that collided with pushed rows.
func (l *List) Duplicates() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.duplicates
}

// Top returns up to n posts ordered by likes minus dislikes, highest first.
// Ties keep list order.
func Top(posts []models.Post, n int) []models.Post {
	ranked := make([]models.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
