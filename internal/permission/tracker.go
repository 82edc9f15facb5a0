// Package permission tracks which metric categories the user has granted
// access to. The platform is only consulted on explicit refresh; everything
// else reads the in-memory set.
package permission

import (
	"context"
	"sync"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// Source reads the granted categories from the platform permission store.
type Source interface {
	GrantedCategories(ctx context.Context) ([]metric.Category, error)
}

// Set maps categories to their granted state. Missing keys mean not granted.
type Set map[metric.Category]bool

// Granted reports whether the category is granted.
func (s Set) Granted(category metric.Category) bool { return s[category] }

// Any reports whether at least one category is granted.
func (s Set) Any() bool {
	for _, granted := range s {
		if granted {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for category, granted := range s {
		out[category] = granted
	}
	return out
}

// Tracker holds the last refreshed permission set.
type Tracker struct {
	mu      sync.RWMutex
	source  Source
	current Set
}

// NewTracker constructs a Tracker with an empty set. Nothing is granted
// until the first Refresh.
func NewTracker(source Source) *Tracker {
	return &Tracker{source: source, current: make(Set)}
}

// Refresh re-reads permission state from the platform. The second return
// value reports a first-grant transition: the previous set had no granted
// categories and the new one has at least one. The sync coordinator uses it
// to discard a cached synthetic snapshot so a newly granted permission is
// never masked by stale placeholder data.
func (t *Tracker) Refresh(ctx context.Context) (Set, bool, error) {
	categories, err := t.source.GrantedCategories(ctx)
	if err != nil {
		return nil, false, err
	}

	next := make(Set, len(categories))
	for _, category := range categories {
		if category.Valid() {
			next[category] = true
		}
	}

	t.mu.Lock()
	firstGrant := !t.current.Any() && next.Any()
	t.current = next
	t.mu.Unlock()

	return next.Clone(), firstGrant, nil
}

// Current returns a copy of the last refreshed set. It never blocks and
// never touches the platform.
func (t *Tracker) Current() Set {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current.Clone()
}
