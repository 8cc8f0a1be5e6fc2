package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// UUIDGenerator produces time-ordered UUIDv7 identifiers.
type UUIDGenerator struct{}

// NewID implements domain.IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator yields prefix-1, prefix-2, ... and is safe for concurrent use.
// Tests inject it to assert exact produced ids.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequenceGenerator constructs a deterministic generator.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix, next: 1}
}

// NewID implements domain.IDGenerator.
func (g *SequenceGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.prefix, g.next)
	g.next++
	return id
}

// retiredIDs tracks ids removed during the process lifetime so they are never
// handed out again.
type retiredIDs struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func newRetiredIDs() *retiredIDs {
	return &retiredIDs{ids: make(map[string]struct{})}
}

func (r *retiredIDs) add(ids ...string) {
	r.mu.Lock()
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	r.mu.Unlock()
}

func (r *retiredIDs) contains(id string) bool {
	r.mu.RLock()
	_, ok := r.ids[id]
	r.mu.RUnlock()
	return ok
}

// retiringGenerator skips ids that were retired earlier in the process.
type retiringGenerator struct {
	inner   IDGenerator
	retired *retiredIDs
}

func (g retiringGenerator) NewID() string {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := g.inner.NewID()
		if !g.retired.contains(id) {
			return id
		}
	}
	// Empty ids are rejected by the engine, which reports an IntegrityFault.
	return ""
}
