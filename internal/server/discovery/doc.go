// Package discovery finds snapmesh hosts on the local network.
//
// Every node joins a memberlist gossip pool and advertises its role and
// game address as node metadata. A client started without an explicit
// server address waits for the first host to appear and connects to it.
package discovery
