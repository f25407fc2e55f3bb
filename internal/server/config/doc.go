// Package config provides server configuration for snapmesh.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation
//   - convert.go: mapping onto component configs
//
// Configuration is loaded via internal/infra/confloader from defaults, a
// YAML file and SNAPMESH_* environment variables.
package config
