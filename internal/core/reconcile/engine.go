package reconcile

import (
	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Defaults for Config.
const (
	DefaultThreshold   = 64
	DefaultSmoothTicks = 4
)

// Config tunes the reconciliation policy.
type Config struct {
	// Threshold is the largest squared distance that is smoothed rather
	// than snapped.
	Threshold int64
	// SmoothTicks is how many ticks a smoothed correction takes.
	SmoothTicks int
	// Capacity is the number of smoothing slots.
	Capacity int
	// MaxEntities caps the entities accepted from one snapshot.
	MaxEntities int
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		SmoothTicks: DefaultSmoothTicks,
		Capacity:    DefaultCapacity,
		MaxEntities: domain.MaxEntities,
	}
}

// Result counts what one Apply did.
type Result struct {
	Spawned  int `json:"spawned"`
	Updated  int `json:"updated"`
	Smoothed int `json:"smoothed"`
	Snapped  int `json:"snapped"`
	Removed  int `json:"removed"`
}

// Engine applies snapshots to a local simulation. It is owned by the
// session's tick loop and is not safe for concurrent use.
type Engine struct {
	cfg    Config
	sim    domain.Simulation
	cache  *SmoothingCache
	index  map[uint32]*domain.Entity
	seen   map[*domain.Entity]struct{}
	remove []*domain.Entity
}

// NewEngine creates an engine over sim. Zero Config fields take their
// defaults.
func NewEngine(sim domain.Simulation, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.SmoothTicks <= 0 {
		cfg.SmoothTicks = def.SmoothTicks
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.MaxEntities <= 0 || cfg.MaxEntities > domain.MaxEntities {
		cfg.MaxEntities = def.MaxEntities
	}

	return &Engine{
		cfg:   cfg,
		sim:   sim,
		cache: NewSmoothingCache(cfg.Capacity),
		index: make(map[uint32]*domain.Entity),
		seen:  make(map[*domain.Entity]struct{}),
	}
}

// Cache returns the engine's smoothing cache.
func (e *Engine) Cache() *SmoothingCache {
	return e.cache
}

// Apply replaces the local dynamic state with s.
//
// The snapshot is checked before anything is touched: more entities than
// the configured ceiling fail with domain.ErrMalformedSnapshot, and more
// sectors or lines than the local level has fail with
// domain.ErrGeometryMismatch. On error the simulation is unchanged.
func (e *Engine) Apply(s *domain.Snapshot) (Result, error) {
	var res Result

	if len(s.Entities) > e.cfg.MaxEntities {
		return res, domain.ErrMalformedSnapshot.WithDetails(
			"%d entities exceeds ceiling %d", len(s.Entities), e.cfg.MaxEntities)
	}
	sectors, lines := e.sim.Sectors(), e.sim.Lines()
	if len(s.Sectors) > len(sectors) {
		return res, domain.ErrGeometryMismatch.WithDetails(
			"snapshot has %d sectors, level has %d", len(s.Sectors), len(sectors))
	}
	if len(s.Lines) > len(lines) {
		return res, domain.ErrGeometryMismatch.WithDetails(
			"snapshot has %d lines, level has %d", len(s.Lines), len(lines))
	}

	local := e.sim.Entities()
	clear(e.index)
	clear(e.seen)
	for _, ent := range local {
		if _, dup := e.index[ent.ID]; !dup {
			e.index[ent.ID] = ent
		}
	}

	e.sim.SetTick(s.Tick)
	for i, p := range s.Players {
		e.sim.SetPlayer(i, p)
	}

	for _, ws := range s.Entities {
		ent, ok := e.index[ws.ID]
		if !ok {
			ent = e.sim.Spawn(ws.Type, ws.Pos)
			ent.ID = ws.ID
			ent.ApplyState(ws)
			e.index[ws.ID] = ent
			e.seen[ent] = struct{}{}
			res.Spawned++
			continue
		}

		e.seen[ent] = struct{}{}
		res.Updated++
		if ent.Pos.DistanceSquared(ws.Pos) <= e.cfg.Threshold {
			e.cache.Schedule(ent.ID, ws.Pos, e.cfg.SmoothTicks)
			res.Smoothed++
		} else {
			e.cache.Cancel(ent.ID)
			ent.Pos = ws.Pos
			res.Snapped++
		}
		ent.ApplyState(ws)
	}

	e.remove = e.remove[:0]
	for _, ent := range local {
		if _, ok := e.seen[ent]; !ok {
			e.remove = append(e.remove, ent)
		}
	}
	for _, ent := range e.remove {
		e.cache.Cancel(ent.ID)
		e.sim.Remove(ent)
	}
	res.Removed = len(e.remove)
	clear(e.remove)

	for i, sec := range s.Sectors {
		e.sim.SetSector(i, sec)
	}
	for i, ln := range s.Lines {
		e.sim.SetLine(i, ln)
	}

	return res, nil
}

// Advance steps smoothing for every local entity once and returns how
// many moved.
func (e *Engine) Advance() int {
	moved := 0
	for _, ent := range e.sim.Entities() {
		if e.cache.Advance(ent) {
			moved++
		}
	}
	return moved
}
