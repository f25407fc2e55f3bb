package domain

import (
	"net/netip"
	"testing"
)

func TestVec3_DistanceSquared(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec3
		want int64
	}{
		{"same point", Vec3{1, 2, 3}, Vec3{1, 2, 3}, 0},
		{"small x offset", Vec3{X: 96, Y: 200}, Vec3{X: 100, Y: 200}, 16},
		{"large x offset", Vec3{X: 9, Y: 200}, Vec3{X: 100, Y: 200}, 8281},
		{"all axes", Vec3{1, 1, 1}, Vec3{}, 3},
		{"no int32 overflow", Vec3{X: 1 << 30}, Vec3{X: -(1 << 30)}, 1 << 62},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.DistanceSquared(tt.b); got != tt.want {
				t.Errorf("DistanceSquared() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSnapshot_Equal(t *testing.T) {
	a := &Snapshot{Tick: 35}
	b := &Snapshot{Tick: 35, Entities: []EntityState{}, Sectors: []SectorState{}}

	if !a.Equal(b) {
		t.Error("nil and empty sections should compare equal")
	}

	b.Entities = append(b.Entities, EntityState{ID: 7})
	if a.Equal(b) {
		t.Error("snapshots with different entities should not be equal")
	}

	var nilSnap *Snapshot
	if nilSnap.Equal(a) {
		t.Error("nil snapshot should not equal non-nil")
	}
	if !nilSnap.Equal(nil) {
		t.Error("nil snapshot should equal nil")
	}
}

func TestSnapshot_ActivePlayers(t *testing.T) {
	s := &Snapshot{}
	s.Players[0].InGame = true
	s.Players[2].InGame = true

	if got := s.ActivePlayers(); got != 2 {
		t.Errorf("ActivePlayers() = %d, want 2", got)
	}
}

func TestEntity_ApplyStateKeepsPositionAndID(t *testing.T) {
	e := &Entity{EntityState: EntityState{ID: 7, Pos: Vec3{X: 96, Y: 200}}}
	e.ApplyState(EntityState{
		ID:        99,
		Pos:       Vec3{X: 100, Y: 200},
		Vel:       Vec3{X: 1},
		Angle:     90,
		Type:      3,
		Health:    50,
		AnimState: 12,
		Flags:     0x4,
		Tics:      8,
	})

	if e.ID != 7 {
		t.Errorf("ID = %d, want 7", e.ID)
	}
	if e.Pos != (Vec3{X: 96, Y: 200}) {
		t.Errorf("Pos = %+v, want unchanged", e.Pos)
	}
	if e.Vel.X != 1 || e.Angle != 90 || e.Type != 3 || e.Health != 50 ||
		e.AnimState != 12 || e.Flags != 0x4 || e.Tics != 8 {
		t.Errorf("non-positional fields not applied: %+v", e.EntityState)
	}
}

func TestPeerChannel_String(t *testing.T) {
	c := PeerChannel{ID: 1, Addr: netip.MustParseAddrPort("10.0.0.2:5030"), InUse: true}
	if got := c.String(); got != "10.0.0.2:5030" {
		t.Errorf("String() = %q", got)
	}

	c.InUse = false
	if got := c.String(); got != "unregistered" {
		t.Errorf("String() = %q, want unregistered", got)
	}
}
