package sim

import (
	"testing"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

func TestWorld_SpawnRemoveKeepsOrder(t *testing.T) {
	w := NewWorld(0, 0)
	a := w.Spawn(1, domain.Vec3{X: 1})
	b := w.Spawn(2, domain.Vec3{X: 2})
	c := w.Spawn(3, domain.Vec3{X: 3})

	list := w.Entities()
	w.Remove(b)

	got := w.Entities()
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("Entities() after Remove = %v", got)
	}
	if len(list) != 3 {
		t.Error("earlier Entities() copy should be unaffected by Remove")
	}

	// Removing an unknown entity is a no-op.
	w.Remove(&domain.Entity{})
	if w.Len() != 2 {
		t.Errorf("Len() = %d, want 2", w.Len())
	}
}

func TestWorld_GeometryBounds(t *testing.T) {
	w := NewWorld(2, 3)

	w.SetSector(1, domain.SectorState{FloorHeight: 8})
	w.SetSector(5, domain.SectorState{FloorHeight: 99})
	w.SetLine(-1, domain.LineState{Flags: 1})
	w.SetLine(2, domain.LineState{Special: 11})

	if got := w.Sectors(); len(got) != 2 || got[1].FloorHeight != 8 {
		t.Errorf("Sectors() = %+v", got)
	}
	if got := w.Lines(); len(got) != 3 || got[2].Special != 11 || got[0].Flags != 0 {
		t.Errorf("Lines() = %+v", got)
	}

	w.SetPlayer(domain.MaxPlayers, domain.PlayerState{InGame: true})
	if w.Players() != ([domain.MaxPlayers]domain.PlayerState{}) {
		t.Error("out-of-range SetPlayer should be ignored")
	}
}

func TestWorld_Step(t *testing.T) {
	w := NewWorld(1, 0)
	e := w.Spawn(1, domain.Vec3{X: Bounds - 1, Y: 0})
	e.Vel = domain.Vec3{X: 4, Y: -2, Z: 1}
	e.Tics = 1

	w.Step()

	if w.Tick() != 1 {
		t.Errorf("Tick() = %d, want 1", w.Tick())
	}
	if e.Pos.X != Bounds || e.Vel.X != -4 {
		t.Errorf("x should clamp and reverse: pos=%d vel=%d", e.Pos.X, e.Vel.X)
	}
	if e.Pos.Y != -2 || e.Pos.Z != 1 {
		t.Errorf("pos = %+v", e.Pos)
	}
	if e.Tics != 0 {
		t.Errorf("Tics = %d, want 0", e.Tics)
	}

	w.Step()
	if e.Tics != 0 {
		t.Error("Tics should not go negative")
	}
}

func TestPopulate_Deterministic(t *testing.T) {
	a, b := NewWorld(4, 4), NewWorld(4, 4)
	Populate(a, 20, 7)
	Populate(b, 20, 7)

	if !Capture(a).Equal(Capture(b)) {
		t.Error("same seed should produce the same world")
	}
	if a.Len() != 20 {
		t.Errorf("Len() = %d, want 20", a.Len())
	}
	if !a.Players()[0].InGame {
		t.Error("player 0 should be in game")
	}
	for _, e := range a.Entities() {
		if e.ID != 0 {
			t.Fatal("Populate should leave ids unassigned")
		}
		if e.Pos.X < -Bounds || e.Pos.X > Bounds {
			t.Fatalf("entity outside arena: %+v", e.Pos)
		}
	}
}

func TestCapture(t *testing.T) {
	w := NewWorld(2, 1)
	w.SetTick(35)
	e := w.Spawn(5, domain.Vec3{X: 100, Y: 200})
	e.ID = 7

	s := Capture(w)
	if s.Tick != 35 || len(s.Entities) != 1 || s.Entities[0].ID != 7 {
		t.Errorf("Capture() = %+v", s)
	}
	if len(s.Sectors) != 2 || len(s.Lines) != 1 {
		t.Errorf("geometry = %d sectors, %d lines", len(s.Sectors), len(s.Lines))
	}

	// The snapshot is detached from the world.
	e.Pos.X = 1
	if s.Entities[0].Pos.X != 100 {
		t.Error("Capture should copy entity state")
	}
}
