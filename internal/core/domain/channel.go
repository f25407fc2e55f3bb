package domain

import "net/netip"

// ServerChannel is the channel reserved for the primary server of a client
// session.
const ServerChannel = 0

// NoChannel marks a datagram whose source matches no registered channel.
const NoChannel = -1

// PeerChannel binds a small integer id to a peer address.
type PeerChannel struct {
	ID    int            `json:"id"`
	Addr  netip.AddrPort `json:"addr"`
	InUse bool           `json:"in_use"`
}

// String returns the peer address as ip:port, or "unregistered".
func (c PeerChannel) String() string {
	if !c.InUse {
		return "unregistered"
	}
	return c.Addr.String()
}
