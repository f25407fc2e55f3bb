// Package buildinfo exposes the version of the running binary.
//
// Values are injected with ldflags and fall back to the module and VCS
// data the Go toolchain embeds:
//
//	go build -ldflags "-X github.com/yndnr/snapmesh-go/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
