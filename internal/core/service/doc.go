// Package service drives a synchronization session.
//
// A Session owns one tick loop. Every cycle it waits for at most one
// datagram until the tick deadline, dispatches it, then runs the role's
// driver:
//
//   - HostDriver assigns ids to new entities and, every snapshot
//     interval, sends a complete snapshot to every registered peer.
//   - ClientDriver advances position smoothing and announces itself to
//     the server with Hello frames until the first snapshot arrives.
//
// Dependencies (transport, recorder) are consumed through small
// interfaces so drivers can be tested against a loopback transport.
package service
