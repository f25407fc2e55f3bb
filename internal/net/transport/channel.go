package transport

import (
	"net/netip"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// channelTable maps channel ids to peer addresses. It is not safe for
// concurrent use; Transport guards it with its mutex.
type channelTable struct {
	slots []domain.PeerChannel

	// next is one past the highest in-use id, 0 when the table is empty.
	next int
}

func newChannelTable(size int) *channelTable {
	t := &channelTable{slots: make([]domain.PeerChannel, size)}
	for i := range t.slots {
		t.slots[i].ID = i
	}
	return t
}

// lookup returns the first in-use channel bound to addr, or
// domain.NoChannel.
func (t *channelTable) lookup(addr netip.AddrPort) int {
	for i := 0; i < t.next; i++ {
		if t.slots[i].InUse && t.slots[i].Addr == addr {
			return i
		}
	}
	return domain.NoChannel
}

// register binds addr to the smallest free id at or above 1. An address
// that is already bound keeps its id.
func (t *channelTable) register(addr netip.AddrPort) (int, error) {
	if id := t.lookup(addr); id != domain.NoChannel {
		return id, nil
	}
	for i := 1; i < len(t.slots); i++ {
		if !t.slots[i].InUse {
			t.bind(i, addr)
			return i, nil
		}
	}
	return domain.NoChannel, domain.ErrChannelTableFull.WithDetails(
		"all %d peer channels are in use", len(t.slots)-1)
}

// bindServer binds addr to the server channel. A peer channel already
// holding addr is freed so the address stays bound once; its id is
// returned, or domain.NoChannel.
func (t *channelTable) bindServer(addr netip.AddrPort) int {
	freed := domain.NoChannel
	for i := 1; i < t.next; i++ {
		if t.slots[i].InUse && t.slots[i].Addr == addr {
			freed = i
			break
		}
	}
	if freed != domain.NoChannel {
		_ = t.unbind(freed)
	}
	t.bind(domain.ServerChannel, addr)
	return freed
}

func (t *channelTable) bind(id int, addr netip.AddrPort) {
	t.slots[id] = domain.PeerChannel{ID: id, Addr: addr, InUse: true}
	if id >= t.next {
		t.next = id + 1
	}
}

func (t *channelTable) unbind(id int) error {
	if err := t.check(id); err != nil {
		return err
	}
	t.slots[id] = domain.PeerChannel{ID: id}
	if id == t.next-1 {
		t.next = 0
		for i := id - 1; i >= 0; i-- {
			if t.slots[i].InUse {
				t.next = i + 1
				break
			}
		}
	}
	return nil
}

// check fails with domain.ErrChannel unless id is a bound channel.
func (t *channelTable) check(id int) error {
	if id < 0 || id >= len(t.slots) {
		return domain.ErrChannel.WithDetails("channel %d out of range [0,%d)", id, len(t.slots))
	}
	if !t.slots[id].InUse {
		return domain.ErrChannel.WithDetails("channel %d is not registered", id)
	}
	return nil
}

func (t *channelTable) addr(id int) (netip.AddrPort, error) {
	if err := t.check(id); err != nil {
		return netip.AddrPort{}, err
	}
	return t.slots[id].Addr, nil
}

// inUse returns a copy of every bound channel ordered by id.
func (t *channelTable) inUse() []domain.PeerChannel {
	out := make([]domain.PeerChannel, 0, t.next)
	for i := 0; i < t.next; i++ {
		if t.slots[i].InUse {
			out = append(out, t.slots[i])
		}
	}
	return out
}

// peers returns the ids of bound channels other than the server channel.
func (t *channelTable) peers() []int {
	var out []int
	for i := 1; i < t.next; i++ {
		if t.slots[i].InUse {
			out = append(out, i)
		}
	}
	return out
}
