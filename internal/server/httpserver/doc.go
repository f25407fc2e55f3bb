// Package httpserver serves the snapmesh admin API.
//
// Endpoints:
//
//	GET    /health
//	GET    /metrics
//	GET    /v1/status
//	GET    /v1/version
//	GET    /v1/hosts
//	GET    /v1/channels
//	POST   /v1/channels         {"addr":"ip:port"}
//	DELETE /v1/channels/{id}
package httpserver
