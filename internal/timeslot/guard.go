package timeslot

import (
	"sort"
	"sync"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// Guard enforces the no-double-booking invariant for in-memory stores: an
// atomic check-and-insert against a per-(tenant, resource) interval set
// inside a single critical section. The Postgres repository enforces the
// same invariant with a tstzrange exclusion constraint; both paths
// guarantee first-committer-wins.
type Guard struct {
	mu   sync.Mutex
	sets map[string]*intervalSet
}

type intervalSet struct {
	mu    sync.Mutex
	holds []hold // sorted by start
}

type hold struct {
	bookingID string
	interval  Interval
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{sets: make(map[string]*intervalSet)}
}

func (g *Guard) set(tenantID, resourceID string) *intervalSet {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := tenantID + "/" + resourceID
	s, ok := g.sets[key]
	if !ok {
		s = &intervalSet{}
		g.sets[key] = s
	}
	return s
}

// Reserve atomically checks for conflicts and inserts the booking's
// interval. A conflicting insert fails with SlotConflictError; callers must
// re-resolve availability before retrying.
func (g *Guard) Reserve(tenantID, resourceID, bookingID string, iv Interval) error {
	s := g.set(tenantID, resourceID)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := sort.Search(len(s.holds), func(i int) bool {
		return s.holds[i].interval.End.After(iv.Start)
	})
	if idx < len(s.holds) && s.holds[idx].interval.Overlaps(iv) {
		return &domain.SlotConflictError{
			TenantID:   tenantID,
			ResourceID: resourceID,
			Start:      s.holds[idx].interval.Start,
			End:        s.holds[idx].interval.End,
		}
	}

	s.holds = append(s.holds, hold{})
	copy(s.holds[idx+1:], s.holds[idx:])
	s.holds[idx] = hold{bookingID: bookingID, interval: iv}
	return nil
}

// Release removes a booking's hold, freeing its resource-time. Releasing an
// unknown booking is a no-op.
func (g *Guard) Release(tenantID, resourceID, bookingID string) {
	s := g.set(tenantID, resourceID)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, h := range s.holds {
		if h.bookingID == bookingID {
			s.holds = append(s.holds[:i], s.holds[i+1:]...)
			return
		}
	}
}

// Holds returns the number of active holds for a resource. Test helper.
func (g *Guard) Holds(tenantID, resourceID string) int {
	s := g.set(tenantID, resourceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holds)
}
