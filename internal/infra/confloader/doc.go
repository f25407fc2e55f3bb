// Package confloader loads configuration with koanf.
//
// Sources, later overriding earlier:
//
//  1. Defaults already present in the target struct
//  2. A YAML file
//  3. SNAPMESH_* environment variables
//  4. Maps supplied by the caller, typically command-line flags
//
// A Watcher reports changes to the file so callers can reload the subset
// of settings that may change at runtime.
package confloader
