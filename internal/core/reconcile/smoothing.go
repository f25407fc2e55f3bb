package reconcile

import "github.com/yndnr/snapmesh-go/internal/core/domain"

// DefaultCapacity is the number of smoothing slots.
const DefaultCapacity = 8192

type smoothEntry struct {
	id        uint32
	target    domain.Vec3
	remaining int
}

// SmoothingCache is a fixed-size table of in-flight position
// interpolations, indexed by id mod capacity.
//
// Two ids that share a slot cannot be smoothed at the same time: the later
// Schedule replaces the earlier one, and the displaced entity simply stops
// where it is until the next snapshot corrects it.
type SmoothingCache struct {
	slots []smoothEntry
}

// NewSmoothingCache creates a cache with the given number of slots.
func NewSmoothingCache(capacity int) *SmoothingCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SmoothingCache{slots: make([]smoothEntry, capacity)}
}

func (c *SmoothingCache) slot(id uint32) *smoothEntry {
	return &c.slots[int(id%uint32(len(c.slots)))]
}

// Capacity returns the number of slots.
func (c *SmoothingCache) Capacity() int {
	return len(c.slots)
}

// Schedule starts moving entity id toward target over ticks calls to
// Advance.
func (c *SmoothingCache) Schedule(id uint32, target domain.Vec3, ticks int) {
	*c.slot(id) = smoothEntry{id: id, target: target, remaining: max(ticks, 0)}
}

// Cancel stops any interpolation in flight for id.
func (c *SmoothingCache) Cancel(id uint32) {
	if s := c.slot(id); s.id == id {
		s.remaining = 0
	}
}

// Pending reports the target and remaining ticks scheduled for id.
func (c *SmoothingCache) Pending(id uint32) (domain.Vec3, int, bool) {
	s := c.slot(id)
	if s.id != id || s.remaining == 0 {
		return domain.Vec3{}, 0, false
	}
	return s.target, s.remaining, true
}

// Advance moves e one step toward its scheduled target: 1/remaining of the
// remaining distance on every axis. On the last step e lands exactly on
// the target. It reports whether e moved.
func (c *SmoothingCache) Advance(e *domain.Entity) bool {
	s := c.slot(e.ID)
	if s.id != e.ID || s.remaining == 0 {
		return false
	}

	n := int64(s.remaining)
	e.Pos.X += int32((int64(s.target.X) - int64(e.Pos.X)) / n)
	e.Pos.Y += int32((int64(s.target.Y) - int64(e.Pos.Y)) / n)
	e.Pos.Z += int32((int64(s.target.Z) - int64(e.Pos.Z)) / n)
	s.remaining--
	return true
}

// Active returns the number of slots with an interpolation in flight.
func (c *SmoothingCache) Active() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].remaining > 0 {
			n++
		}
	}
	return n
}
