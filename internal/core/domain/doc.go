// Package domain defines the core domain models for SnapMesh.
//
// Domain models are plain values without IO dependencies. This package
// contains:
//
//   - Snapshot: point-in-time state of players, entities and geometry
//   - Entity: a mutable dynamic object held by a local simulation
//   - Simulation: the port a simulation implements to be synchronized
//   - PeerChannel: a small integer handle bound to a peer address
//   - Errors: domain-specific error definitions
package domain
