// Package output renders CLI results as a table, JSON or YAML.
//
// Tables are built by reflection from structs, slices of structs and
// maps. Struct fields tagged `table:"wide"` only appear with --wide, and
// fields tagged `table:"-"` never appear.
package output
