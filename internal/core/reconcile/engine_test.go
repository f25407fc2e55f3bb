package reconcile

import (
	"errors"
	"testing"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/sim"
)

func spawnWithID(w *sim.World, id uint32, pos domain.Vec3) *domain.Entity {
	e := w.Spawn(1, pos)
	e.ID = id
	return e
}

func entityByID(w *sim.World, id uint32) *domain.Entity {
	for _, e := range w.Entities() {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func snapshotWith(entities ...domain.EntityState) *domain.Snapshot {
	return &domain.Snapshot{Tick: 35, Entities: entities}
}

func TestApply_ScenarioB_Smooths(t *testing.T) {
	w := sim.NewWorld(0, 0)
	e := spawnWithID(w, 7, domain.Vec3{X: 96, Y: 200})
	eng := NewEngine(w, Config{})

	res, err := eng.Apply(snapshotWith(domain.EntityState{
		ID: 7, Pos: domain.Vec3{X: 100, Y: 200}, Health: 80, Vel: domain.Vec3{X: 1},
	}))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Smoothed != 1 || res.Snapped != 0 {
		t.Fatalf("result = %+v, want one smoothed", res)
	}
	if e.Pos.X != 96 {
		t.Errorf("position should not jump, x = %d", e.Pos.X)
	}
	if e.Health != 80 || e.Vel.X != 1 {
		t.Errorf("non-positional fields not applied: %+v", e.EntityState)
	}
	target, remaining, ok := eng.Cache().Pending(7)
	if !ok || target != (domain.Vec3{X: 100, Y: 200}) || remaining != DefaultSmoothTicks {
		t.Errorf("Pending(7) = %+v, %d, %v", target, remaining, ok)
	}

	for i := 0; i < DefaultSmoothTicks; i++ {
		if moved := eng.Advance(); moved != 1 {
			t.Fatalf("tick %d: Advance() moved %d entities", i, moved)
		}
	}
	if e.Pos != (domain.Vec3{X: 100, Y: 200}) {
		t.Errorf("converged to %+v", e.Pos)
	}
	if eng.Advance() != 0 {
		t.Error("nothing should move after convergence")
	}
}

func TestApply_ScenarioC_Snaps(t *testing.T) {
	w := sim.NewWorld(0, 0)
	e := spawnWithID(w, 7, domain.Vec3{X: 9, Y: 200})
	eng := NewEngine(w, Config{})

	res, err := eng.Apply(snapshotWith(domain.EntityState{ID: 7, Pos: domain.Vec3{X: 100, Y: 200}}))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Snapped != 1 || res.Smoothed != 0 {
		t.Fatalf("result = %+v, want one snapped", res)
	}
	if e.Pos.X != 100 {
		t.Errorf("x = %d, want 100 immediately", e.Pos.X)
	}
	if _, _, ok := eng.Cache().Pending(7); ok {
		t.Error("a snap should leave nothing scheduled")
	}
}

func TestApply_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name       string
		localX     int32
		wantSmooth bool
	}{
		{"exactly threshold", 92, true}, // 8*8 == 64
		{"one past", 91, false},         // 81
		{"identical", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sim.NewWorld(0, 0)
			spawnWithID(w, 7, domain.Vec3{X: tt.localX})
			res, err := NewEngine(w, Config{}).Apply(snapshotWith(domain.EntityState{ID: 7, Pos: domain.Vec3{X: 100}}))
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got := res.Smoothed == 1; got != tt.wantSmooth {
				t.Errorf("smoothed = %v, want %v (%+v)", got, tt.wantSmooth, res)
			}
		})
	}
}

func TestApply_Lifecycle(t *testing.T) {
	w := sim.NewWorld(0, 0)
	spawnWithID(w, 1, domain.Vec3{})
	spawnWithID(w, 2, domain.Vec3{})
	spawnWithID(w, 3, domain.Vec3{})
	eng := NewEngine(w, Config{})

	res, err := eng.Apply(snapshotWith(
		domain.EntityState{ID: 3},
		domain.EntityState{ID: 9, Type: 4, Pos: domain.Vec3{X: 500}, Health: 20},
		domain.EntityState{ID: 1},
	))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := Result{Spawned: 1, Updated: 2, Smoothed: 2, Removed: 1}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
	if entityByID(w, 2) != nil {
		t.Error("entity 2 should have been removed")
	}
	spawned := entityByID(w, 9)
	if spawned == nil {
		t.Fatal("entity 9 should have been spawned")
	}
	if spawned.Type != 4 || spawned.Pos.X != 500 || spawned.Health != 20 {
		t.Errorf("spawned entity = %+v", spawned.EntityState)
	}
	if w.Len() != 3 {
		t.Errorf("Len() = %d, want 3", w.Len())
	}
}

func TestApply_EmptySnapshotRemovesEverything(t *testing.T) {
	w := sim.NewWorld(0, 0)
	for i := uint32(1); i <= 5; i++ {
		spawnWithID(w, i, domain.Vec3{})
	}

	res, err := NewEngine(w, Config{}).Apply(snapshotWith())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Removed != 5 || w.Len() != 0 {
		t.Errorf("removed %d, %d left", res.Removed, w.Len())
	}
}

func TestApply_Idempotent(t *testing.T) {
	w := sim.NewWorld(2, 2)
	eng := NewEngine(w, Config{})

	snap := &domain.Snapshot{
		Tick: 70,
		Entities: []domain.EntityState{
			{ID: 7, Pos: domain.Vec3{X: 100, Y: 200}, Health: 100},
			{ID: 8, Pos: domain.Vec3{X: -50}, Type: 2},
		},
		Sectors: []domain.SectorState{{FloorHeight: 16, CeilingHeight: 72}},
		Lines:   []domain.LineState{{Flags: 1}, {Special: 3}},
	}
	snap.Players[0] = domain.PlayerState{InGame: true, EntityID: 7}

	if _, err := eng.Apply(snap); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	first := sim.Capture(w)

	res, err := eng.Apply(snap)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if res.Spawned != 0 || res.Removed != 0 {
		t.Errorf("second apply spawned %d, removed %d", res.Spawned, res.Removed)
	}
	if second := sim.Capture(w); !second.Equal(first) {
		t.Errorf("state changed on reapply:\n got %+v\nwant %+v", second, first)
	}
	if !first.Equal(snap) {
		// Sector 1 keeps its local value since the wire array is shorter.
		want := *snap
		want.Sectors = append(want.Sectors, w.Sectors()[1])
		if !first.Equal(&want) {
			t.Errorf("local state %+v does not mirror snapshot", first)
		}
	}
}

func TestApply_GeometryPositional(t *testing.T) {
	w := sim.NewWorld(3, 2)
	untouched := w.Sectors()[2]

	_, err := NewEngine(w, Config{}).Apply(&domain.Snapshot{
		Sectors: []domain.SectorState{{FloorHeight: 1}, {FloorHeight: 2}},
		Lines:   []domain.LineState{{Flags: 5}, {Flags: 6}},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	sectors := w.Sectors()
	if sectors[0].FloorHeight != 1 || sectors[1].FloorHeight != 2 {
		t.Errorf("sectors = %+v", sectors)
	}
	if sectors[2] != untouched {
		t.Errorf("tail sector changed to %+v", sectors[2])
	}
	if lines := w.Lines(); lines[0].Flags != 5 || lines[1].Flags != 6 {
		t.Errorf("lines = %+v", lines)
	}
}

func TestApply_GeometryMismatchRejected(t *testing.T) {
	tests := []struct {
		name string
		snap *domain.Snapshot
	}{
		{"extra sector", &domain.Snapshot{Sectors: make([]domain.SectorState, 3)}},
		{"extra line", &domain.Snapshot{Lines: make([]domain.LineState, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sim.NewWorld(2, 1)
			e := spawnWithID(w, 7, domain.Vec3{X: 1})
			tt.snap.Tick = 99
			tt.snap.Entities = []domain.EntityState{{ID: 8}}

			_, err := NewEngine(w, Config{}).Apply(tt.snap)
			if !errors.Is(err, domain.ErrGeometryMismatch) {
				t.Fatalf("error = %v, want ErrGeometryMismatch", err)
			}
			if w.Tick() != 0 || w.Len() != 1 || entityByID(w, 7) != e {
				t.Error("rejected snapshot must not mutate the world")
			}
		})
	}
}

func TestApply_EntityCeiling(t *testing.T) {
	w := sim.NewWorld(0, 0)
	eng := NewEngine(w, Config{MaxEntities: 2})

	_, err := eng.Apply(snapshotWith(
		domain.EntityState{ID: 1}, domain.EntityState{ID: 2}, domain.EntityState{ID: 3},
	))
	if !errors.Is(err, domain.ErrMalformedSnapshot) {
		t.Fatalf("error = %v, want ErrMalformedSnapshot", err)
	}
	if w.Len() != 0 {
		t.Error("nothing should be spawned")
	}
}

func TestApply_SnapCancelsSmoothing(t *testing.T) {
	w := sim.NewWorld(0, 0)
	e := spawnWithID(w, 7, domain.Vec3{X: 96})
	eng := NewEngine(w, Config{})

	eng.Apply(snapshotWith(domain.EntityState{ID: 7, Pos: domain.Vec3{X: 100}}))
	eng.Apply(snapshotWith(domain.EntityState{ID: 7, Pos: domain.Vec3{X: 1000}}))

	if e.Pos.X != 1000 {
		t.Fatalf("x = %d, want 1000", e.Pos.X)
	}
	eng.Advance()
	if e.Pos.X != 1000 {
		t.Errorf("stale smoothing moved the entity to %d", e.Pos.X)
	}
}

func TestApply_PlayersAndTick(t *testing.T) {
	w := sim.NewWorld(0, 0)
	snap := &domain.Snapshot{Tick: 35}
	snap.Players[0] = domain.PlayerState{InGame: true, EntityID: 7, Health: 100, ViewHeight: 41}

	if _, err := NewEngine(w, Config{}).Apply(snap); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if w.Tick() != 35 {
		t.Errorf("Tick() = %d", w.Tick())
	}
	if w.Players() != snap.Players {
		t.Errorf("Players() = %+v", w.Players())
	}
}
