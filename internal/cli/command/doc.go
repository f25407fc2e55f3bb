// Package command defines snapmesh-cli's commands on urfave/cli/v2.
//
// Online commands (status, health, version, channel, hosts) talk to a
// node's admin API. The record commands open a recording directory
// directly and work with the node stopped or, for read-only commands,
// running. Results go through the output package so every command
// honours --output.
package command
