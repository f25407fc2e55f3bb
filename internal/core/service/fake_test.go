package service

import (
	"context"
	"net/netip"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
)

type sentDatagram struct {
	channel int
	data    []byte
}

// fakeTransport records sends and serves queued frames.
type fakeTransport struct {
	channels map[int]netip.AddrPort
	sent     []sentDatagram
	inbox    []transport.Received
	failSend bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{channels: map[int]netip.AddrPort{}}
}

func (f *fakeTransport) WaitReadable(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (f *fakeTransport) ReceiveFrame() (transport.Received, bool) {
	if len(f.inbox) == 0 {
		return transport.Received{}, false
	}
	r := f.inbox[0]
	f.inbox = f.inbox[1:]
	return r, true
}

func (f *fakeTransport) SendTo(channel int, data []byte) error {
	if _, ok := f.channels[channel]; !ok || f.failSend {
		return domain.ErrChannel
	}
	f.sent = append(f.sent, sentDatagram{channel: channel, data: slices.Clone(data)})
	return nil
}

func (f *fakeTransport) SendFrame(channel int, fr transport.Frame) error {
	return f.SendTo(channel, transport.EncodeFrame(fr))
}

func (f *fakeTransport) RegisterChannel(addr netip.AddrPort) (int, error) {
	for id, a := range f.channels {
		if a == addr {
			return id, nil
		}
	}
	for id := 1; ; id++ {
		if _, ok := f.channels[id]; !ok {
			f.channels[id] = addr
			return id, nil
		}
	}
}

func (f *fakeTransport) UnregisterChannel(id int) error {
	if _, ok := f.channels[id]; !ok {
		return domain.ErrChannel
	}
	delete(f.channels, id)
	return nil
}

func (f *fakeTransport) Channels() []domain.PeerChannel {
	var out []domain.PeerChannel
	for id, a := range f.channels {
		out = append(out, domain.PeerChannel{ID: id, Addr: a, InUse: true})
	}
	slices.SortFunc(out, func(a, b domain.PeerChannel) int { return a.ID - b.ID })
	return out
}

func (f *fakeTransport) Peers() []int {
	var out []int
	for id := range f.channels {
		if id != domain.ServerChannel {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

type recordedFrame struct {
	session ulid.ULID
	tick    uint32
	payload []byte
}

type fakeRecorder struct {
	frames []recordedFrame
}

func (r *fakeRecorder) Append(_ context.Context, session ulid.ULID, tick uint32, payload []byte) error {
	r.frames = append(r.frames, recordedFrame{session, tick, slices.Clone(payload)})
	return nil
}
