package domain

// Entity is a dynamic object held by a local simulation.
//
// Entities are handled by pointer: the reconciler mutates them in place and
// the simulation keeps ownership.
type Entity struct {
	EntityState
}

// Snapshot returns the wire view of the entity.
func (e *Entity) Snapshot() EntityState {
	return e.EntityState
}

// ApplyState overwrites every field except position and ID.
// Position is handled separately because it may be smoothed.
func (e *Entity) ApplyState(s EntityState) {
	e.Vel = s.Vel
	e.Angle = s.Angle
	e.Type = s.Type
	e.Health = s.Health
	e.AnimState = s.AnimState
	e.Flags = s.Flags
	e.Tics = s.Tics
}

// Simulation is the port a local simulation exposes to the synchronizer.
//
// Implementations are driven from a single tick loop and need not be safe
// for concurrent use.
type Simulation interface {
	// Tick returns the current simulation tick.
	Tick() uint32
	// SetTick overwrites the current simulation tick.
	SetTick(tick uint32)

	// Players returns a copy of every player slot.
	Players() [MaxPlayers]PlayerState
	// SetPlayer overwrites one player slot.
	SetPlayer(slot int, p PlayerState)

	// Entities enumerates the dynamic entities in a stable order.
	// The returned slice is a copy; removing entities while ranging over
	// it is safe.
	Entities() []*Entity
	// Spawn creates an entity of the given type at pos.
	Spawn(typ int32, pos Vec3) *Entity
	// Remove deletes an entity previously returned by Entities or Spawn.
	Remove(e *Entity)

	// Sectors returns a copy of the mutable sector fields.
	Sectors() []SectorState
	// SetSector overwrites sector i.
	SetSector(i int, s SectorState)
	// Lines returns a copy of the mutable line fields.
	Lines() []LineState
	// SetLine overwrites line i.
	SetLine(i int, l LineState)
}
