// Package snapshot provides the binary codec for SnapMesh snapshots.
//
// Layout (all integers big-endian, no padding, no compression):
//
//	tick          u32
//	players       [domain.MaxPlayers] x 36 bytes
//	entity count  u32, then count x 52 bytes
//	sector count  u32, then count x 12 bytes
//	line count    u32, then count x 6 bytes
//
// Decode validates every declared count against the supplied buffer before
// reading it and rejects the snapshot wholesale on any inconsistency.
package snapshot
