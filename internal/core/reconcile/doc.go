// Package reconcile applies received snapshots to a client's local
// simulation.
//
// Entities are joined to snapshot records by their host-assigned id. A
// record with no local match spawns exactly one entity; a local entity the
// snapshot does not mention is removed in the same pass. Small position
// corrections are interpolated over a few ticks through SmoothingCache;
// large ones are applied immediately.
package reconcile
