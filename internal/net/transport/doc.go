// Package transport provides the channel-addressed UDP transport.
//
// A Transport owns one IPv4 UDP socket and a small table that maps integer
// channel ids to peer addresses. Channel 0 is reserved for the server a
// client connects to; hosts hand out ids from 1 upward as peers register.
//
// Receipt is split in two. A reader goroutine only copies datagrams off
// the socket into a bounded queue. The owner of the Transport drains that
// queue from its own loop through WaitReadable and ReceiveOne (raw bytes)
// or ReceiveFrame (checksummed frames), so decoding never happens on the
// reader goroutine.
//
// Every frame starts with an 8-byte header:
//
//	checksum u8 | type u8 | version u8 | reserved u8 | tick u32 (big-endian)
//
// The checksum is the sum of all frame bytes modulo 256, computed with the
// checksum byte itself taken as zero.
package transport
