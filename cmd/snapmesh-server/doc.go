// Command snapmesh-server runs one snapmesh node: either the
// authoritative host that broadcasts world snapshots over UDP, or a
// client that follows a host and reconciles its local copy.
//
// Configuration is layered: built-in defaults, then the YAML file given
// by --config, then SNAPMESH_* environment variables, then command-line
// flags. log.level is reloaded when the file changes.
package main
