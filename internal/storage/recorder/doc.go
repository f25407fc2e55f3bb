// Package recorder persists emitted snapshots in an embedded Badger store.
//
// Each recording is keyed by the session's ULID, so recordings sort by
// start time:
//
//	snap/<session ulid>/<tick u32 big-endian>  ->  encoded snapshot payload
//
// A background loop runs Badger's value-log GC on a fixed interval.
package recorder
