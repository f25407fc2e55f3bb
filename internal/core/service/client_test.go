package service

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/reconcile"
	"github.com/yndnr/snapmesh-go/internal/core/snapshot"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
	"github.com/yndnr/snapmesh-go/internal/sim"
)

var serverAddr = netip.MustParseAddrPort("10.0.0.1:5030")

func newClient(w *sim.World) (*ClientDriver, *fakeTransport) {
	tr := newFakeTransport()
	tr.channels[domain.ServerChannel] = serverAddr
	return NewClientDriver(w, tr, reconcile.Config{}, 3, 12, nil, nil), tr
}

func snapshotFrame(s *domain.Snapshot, channel int) transport.Received {
	return transport.Received{
		Frame:   transport.Frame{Type: transport.FrameSnapshot, Tick: s.Tick, Payload: snapshot.Encode(s)},
		From:    serverAddr,
		Channel: channel,
	}
}

func TestClientDriver_HelloUntilSynced(t *testing.T) {
	w := sim.NewWorld(0, 0)
	c, tr := newClient(w)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		c.Tick(ctx)
	}
	// Ticks 0, 3 and 6.
	if len(tr.sent) != 3 {
		t.Fatalf("sent %d hellos, want 3", len(tr.sent))
	}
	for _, s := range tr.sent {
		f, err := transport.DecodeFrame(s.data)
		if err != nil || f.Type != transport.FrameHello || s.channel != domain.ServerChannel {
			t.Fatalf("unexpected datagram %+v (%v)", s, err)
		}
	}

	if err := c.Handle(snapshotFrame(&domain.Snapshot{Tick: 35}, domain.ServerChannel)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !c.Synced() {
		t.Fatal("client should be synced")
	}
	for i := 0; i < 6; i++ {
		c.Tick(ctx)
	}
	if len(tr.sent) != 3 {
		t.Errorf("hellos continued after sync: %d", len(tr.sent))
	}
}

func TestClientDriver_HelloResumesWhenServerSilent(t *testing.T) {
	w := sim.NewWorld(0, 0)
	c, tr := newClient(w)
	ctx := context.Background()

	if err := c.Handle(snapshotFrame(&domain.Snapshot{Tick: 35}, domain.ServerChannel)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	for i := 0; i < 12; i++ {
		c.Tick(ctx)
	}
	if len(tr.sent) != 0 || c.Announcing() {
		t.Fatalf("client announced within the resync window: %d sent", len(tr.sent))
	}

	// Ticks 12 and 15 fall on the hello interval once the server is silent.
	for i := 0; i < 4; i++ {
		c.Tick(ctx)
	}
	if len(tr.sent) != 2 || !c.Announcing() {
		t.Fatalf("sent %d hellos after silence (announcing=%v), want 2", len(tr.sent), c.Announcing())
	}
	if !c.Synced() {
		t.Error("client should stay synced while re-announcing")
	}

	if err := c.Handle(snapshotFrame(&domain.Snapshot{Tick: 70}, domain.ServerChannel)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		c.Tick(ctx)
	}
	if len(tr.sent) != 2 || c.Announcing() {
		t.Errorf("hellos continued after the server resumed: %d", len(tr.sent))
	}
}

func TestClientDriver_AppliesServerSnapshot(t *testing.T) {
	w := sim.NewWorld(1, 1)
	stale := w.Spawn(1, domain.Vec3{})
	stale.ID = 99
	c, _ := newClient(w)

	snap := &domain.Snapshot{
		Tick:     35,
		Entities: []domain.EntityState{{ID: 7, Pos: domain.Vec3{X: 100, Y: 200}}},
		Sectors:  []domain.SectorState{{FloorHeight: 8}},
	}
	snap.Players[0] = domain.PlayerState{InGame: true, EntityID: 7, Health: 100, ViewHeight: 41}

	if err := c.Handle(snapshotFrame(snap, domain.ServerChannel)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	res := c.LastResult()
	if res.Spawned != 1 || res.Removed != 1 {
		t.Errorf("result = %+v", res)
	}
	if w.Tick() != 35 || w.Len() != 1 || w.Entities()[0].ID != 7 {
		t.Errorf("world not reconciled: tick %d, %d entities", w.Tick(), w.Len())
	}
	if w.Sectors()[0].FloorHeight != 8 {
		t.Error("sector not applied")
	}
}

func TestClientDriver_IgnoresNonServerSnapshot(t *testing.T) {
	w := sim.NewWorld(0, 0)
	c, _ := newClient(w)

	if err := c.Handle(snapshotFrame(&domain.Snapshot{Tick: 35}, 3)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if c.Synced() || w.Tick() != 0 {
		t.Error("snapshot from a non-server channel must be ignored")
	}
}

func TestClientDriver_RejectsBadSnapshots(t *testing.T) {
	tests := []struct {
		name    string
		frame   transport.Received
		wantErr error
	}{
		{
			name: "malformed payload",
			frame: transport.Received{
				Frame:   transport.Frame{Type: transport.FrameSnapshot, Payload: []byte{1, 2, 3}},
				Channel: domain.ServerChannel,
			},
			wantErr: domain.ErrMalformedSnapshot,
		},
		{
			name:    "geometry mismatch",
			frame:   snapshotFrame(&domain.Snapshot{Sectors: make([]domain.SectorState, 5)}, domain.ServerChannel),
			wantErr: domain.ErrGeometryMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sim.NewWorld(1, 0)
			c, _ := newClient(w)

			if err := c.Handle(tt.frame); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Handle() error = %v, want %v", err, tt.wantErr)
			}
			if c.Synced() {
				t.Error("rejected snapshot must not mark the client synced")
			}
		})
	}
}

func TestClientDriver_TickAdvancesSmoothing(t *testing.T) {
	w := sim.NewWorld(0, 0)
	e := w.Spawn(1, domain.Vec3{X: 96, Y: 200})
	e.ID = 7
	c, _ := newClient(w)

	c.Handle(snapshotFrame(&domain.Snapshot{
		Entities: []domain.EntityState{{ID: 7, Pos: domain.Vec3{X: 100, Y: 200}}},
	}, domain.ServerChannel))

	for i := 0; i < reconcile.DefaultSmoothTicks; i++ {
		if moved := c.Tick(context.Background()); moved != 1 {
			t.Fatalf("tick %d moved %d", i, moved)
		}
	}
	if e.Pos.X != 100 {
		t.Errorf("x = %d, want 100", e.Pos.X)
	}
}

func TestClientDriver_Leave(t *testing.T) {
	c, tr := newClient(sim.NewWorld(0, 0))

	if err := c.Leave(); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	f, err := transport.DecodeFrame(tr.sent[0].data)
	if err != nil || f.Type != transport.FrameBye {
		t.Errorf("sent %v (%v), want bye", f.Type, err)
	}
}
