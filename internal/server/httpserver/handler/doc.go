// Package handler provides the admin API handlers for snapmesh-server.
//
//   - health.go: liveness
//   - status.go: session status and build version
//   - channel.go: channel table inspection and edits
//
// Every JSON response uses the Response envelope.
package handler
