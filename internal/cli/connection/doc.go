// Package connection is the HTTP client snapmesh-cli uses to talk to a
// node's admin API.
//
// Every admin endpoint except /metrics answers with the same envelope
// ({code, message, request_id, timestamp, data}); ParseResponse unwraps
// it and turns a non-OK code into an *APIError.
package connection
