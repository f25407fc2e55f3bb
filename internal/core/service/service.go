package service

import (
	"context"
	"net/netip"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
)

// Transport is the part of *transport.Transport a session uses.
type Transport interface {
	WaitReadable(ctx context.Context, timeout time.Duration) error
	ReceiveFrame() (transport.Received, bool)
	SendTo(channel int, data []byte) error
	SendFrame(channel int, f transport.Frame) error
	RegisterChannel(addr netip.AddrPort) (int, error)
	UnregisterChannel(id int) error
	Channels() []domain.PeerChannel
	Peers() []int
}

// Recorder persists emitted snapshots.
type Recorder interface {
	Append(ctx context.Context, session ulid.ULID, tick uint32, payload []byte) error
}

// World is a simulation the host can step.
type World interface {
	domain.Simulation
	Step()
}

// Role selects which driver a session runs.
type Role string

// Roles.
const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHost || r == RoleClient
}

// Defaults for Config.
const (
	DefaultTickRate         = 35
	DefaultSnapshotInterval = 35
	DefaultHelloInterval    = 35
	// DefaultResyncTicks is four default snapshot intervals.
	DefaultResyncTicks = 4 * DefaultSnapshotInterval
)
