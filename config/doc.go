// Package config defines the automation configuration, its defaults and
// named presets, and the merge rule used to apply caller overrides:
// override keys replace scalars and recursively merge nested mappings at
// unbounded depth.
//
// Configurations load from and save to TOML files.
package config
