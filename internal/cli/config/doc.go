// Package config holds snapmesh-cli's own settings file
// (~/.snapmesh/cli.yaml): the default admin address, output format,
// recording directory and named node profiles.
package config
