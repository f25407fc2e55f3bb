package sim

import (
	"math/rand/v2"
	"slices"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Bounds is the half-width of the square arena entities bounce around in.
const Bounds = 4096

// World is an in-memory domain.Simulation.
type World struct {
	tick     uint32
	players  [domain.MaxPlayers]domain.PlayerState
	entities []*domain.Entity
	sectors  []domain.SectorState
	lines    []domain.LineState
}

var _ domain.Simulation = (*World)(nil)

// NewWorld creates an empty world with the given amount of geometry.
func NewWorld(sectors, lines int) *World {
	w := &World{
		sectors: make([]domain.SectorState, sectors),
		lines:   make([]domain.LineState, lines),
	}
	for i := range w.sectors {
		w.sectors[i] = domain.SectorState{CeilingHeight: 128, LightLevel: 160}
	}
	return w
}

func (w *World) Tick() uint32        { return w.tick }
func (w *World) SetTick(tick uint32) { w.tick = tick }

func (w *World) Players() [domain.MaxPlayers]domain.PlayerState { return w.players }

func (w *World) SetPlayer(slot int, p domain.PlayerState) {
	if slot >= 0 && slot < len(w.players) {
		w.players[slot] = p
	}
}

func (w *World) Entities() []*domain.Entity { return slices.Clone(w.entities) }

func (w *World) Spawn(typ int32, pos domain.Vec3) *domain.Entity {
	e := &domain.Entity{EntityState: domain.EntityState{Type: typ, Pos: pos}}
	w.entities = append(w.entities, e)
	return e
}

func (w *World) Remove(e *domain.Entity) {
	if i := slices.Index(w.entities, e); i >= 0 {
		w.entities = slices.Delete(w.entities, i, i+1)
	}
}

func (w *World) Sectors() []domain.SectorState { return slices.Clone(w.sectors) }

func (w *World) SetSector(i int, s domain.SectorState) {
	if i >= 0 && i < len(w.sectors) {
		w.sectors[i] = s
	}
}

func (w *World) Lines() []domain.LineState { return slices.Clone(w.lines) }

func (w *World) SetLine(i int, l domain.LineState) {
	if i >= 0 && i < len(w.lines) {
		w.lines[i] = l
	}
}

// Len returns the number of entities.
func (w *World) Len() int { return len(w.entities) }

// Step advances the world by one tick: entities move by their velocity
// and bounce off the arena edge, tic counters run down, and one sector's
// light pulses so geometry changes are visible on the wire.
func (w *World) Step() {
	w.tick++

	for _, e := range w.entities {
		e.Pos.X, e.Vel.X = bounce(e.Pos.X, e.Vel.X)
		e.Pos.Y, e.Vel.Y = bounce(e.Pos.Y, e.Vel.Y)
		e.Pos.Z += e.Vel.Z
		if e.Tics > 0 {
			e.Tics--
		}
	}

	if n := len(w.sectors); n > 0 {
		s := &w.sectors[int(w.tick/35)%n]
		s.LightLevel = int16(96 + (w.tick%32)*5)
	}
}

func bounce(pos, vel int32) (int32, int32) {
	pos += vel
	if pos > Bounds || pos < -Bounds {
		vel = -vel
		pos = min(max(pos, -Bounds), Bounds)
	}
	return pos, vel
}

// Populate spawns n demo entities with seeded random positions and
// velocities, and puts player 0 in game on the first one. IDs are left
// unassigned for the host to fill in.
func Populate(w *World, n int, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))

	for i := 0; i < n; i++ {
		e := w.Spawn(int32(rng.IntN(16)), domain.Vec3{
			X: rng.Int32N(2*Bounds) - Bounds,
			Y: rng.Int32N(2*Bounds) - Bounds,
		})
		e.Vel = domain.Vec3{X: rng.Int32N(17) - 8, Y: rng.Int32N(17) - 8}
		e.Angle = rng.Uint32()
		e.Health = 100
		e.Tics = int32(rng.IntN(35))
	}

	if n > 0 {
		w.SetPlayer(0, domain.PlayerState{InGame: true, Health: 100, ViewHeight: 41})
	}
}

// Capture builds a snapshot of the world's current state.
func Capture(s domain.Simulation) *domain.Snapshot {
	ents := s.Entities()
	snap := &domain.Snapshot{
		Tick:     s.Tick(),
		Players:  s.Players(),
		Entities: make([]domain.EntityState, 0, min(len(ents), domain.MaxEntities)),
		Sectors:  s.Sectors(),
		Lines:    s.Lines(),
	}
	for _, e := range ents {
		if len(snap.Entities) == domain.MaxEntities {
			break
		}
		snap.Entities = append(snap.Entities, e.Snapshot())
	}
	return snap
}
