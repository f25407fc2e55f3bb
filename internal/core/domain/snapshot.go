package domain

import "slices"

// Fixed protocol dimensions shared by host and client.
const (
	// MaxPlayers is the number of player slots carried by every snapshot.
	MaxPlayers = 4

	// MaxEntities is the ceiling on entities carried by one snapshot.
	// Entities past the ceiling are not transmitted.
	MaxEntities = 4096
)

// Player slot status values.
const (
	PlayerLive uint8 = iota
	PlayerDead
	PlayerReborn
)

// Vec3 is an integer position or velocity in map units.
type Vec3 struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// LengthSquared returns the squared Euclidean length of v.
func (v Vec3) LengthSquared() int64 {
	x, y, z := int64(v.X), int64(v.Y), int64(v.Z)
	return x*x + y*y + z*z
}

// DistanceSquared returns the squared Euclidean distance between v and o.
// The difference is taken in 64 bits so far-apart points do not wrap.
func (v Vec3) DistanceSquared(o Vec3) int64 {
	x := int64(v.X) - int64(o.X)
	y := int64(v.Y) - int64(o.Y)
	z := int64(v.Z) - int64(o.Z)
	return x*x + y*y + z*z
}

// PlayerState is one fixed-size player slot.
type PlayerState struct {
	InGame      bool   `json:"in_game"`
	Status      uint8  `json:"status"`
	EntityID    uint32 `json:"entity_id"`
	Health      int32  `json:"health"`
	Armor       int32  `json:"armor"`
	ReadyWeapon int32  `json:"ready_weapon"`
	Kills       int32  `json:"kills"`
	Items       int32  `json:"items"`
	Secrets     int32  `json:"secrets"`
	ViewHeight  int32  `json:"view_height"`
}

// EntityState is the wire view of one dynamic entity.
//
// ID is assigned by the host and is the only join key between snapshots.
// Zero means "not yet assigned".
type EntityState struct {
	ID        uint32 `json:"id"`
	Pos       Vec3   `json:"pos"`
	Vel       Vec3   `json:"vel"`
	Angle     uint32 `json:"angle"`
	Type      int32  `json:"type"`
	Health    int32  `json:"health"`
	AnimState int32  `json:"anim_state"`
	Flags     uint32 `json:"flags"`
	Tics      int32  `json:"tics"`
}

// SectorState carries the mutable fields of one sector.
type SectorState struct {
	FloorHeight   int32 `json:"floor_height"`
	CeilingHeight int32 `json:"ceiling_height"`
	LightLevel    int16 `json:"light_level"`
	Special       int16 `json:"special"`
}

// LineState carries the mutable fields of one line.
type LineState struct {
	Flags   uint32 `json:"flags"`
	Special int16  `json:"special"`
}

// Snapshot is a complete point-in-time serialization of dynamic state.
// A snapshot replaces whatever was applied before it; it never merges.
type Snapshot struct {
	Tick     uint32                  `json:"tick"`
	Players  [MaxPlayers]PlayerState `json:"players"`
	Entities []EntityState           `json:"entities"`
	Sectors  []SectorState           `json:"sectors"`
	Lines    []LineState             `json:"lines"`
}

// Equal reports whether two snapshots carry the same state.
// Nil and empty sections compare equal.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Tick == o.Tick &&
		s.Players == o.Players &&
		slices.Equal(s.Entities, o.Entities) &&
		slices.Equal(s.Sectors, o.Sectors) &&
		slices.Equal(s.Lines, o.Lines)
}

// ActivePlayers returns the number of in-game player slots.
func (s *Snapshot) ActivePlayers() int {
	n := 0
	for _, p := range s.Players {
		if p.InGame {
			n++
		}
	}
	return n
}
