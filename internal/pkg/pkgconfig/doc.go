// Package pkgconfig reads service settings through a small Config interface.
//
// Viper backs the default implementation: a YAML file plus environment
// overrides, where the key upload.max_part_bytes maps to
// UPLOAD_MAX_PART_BYTES. Modules take a Config instead of Viper directly so
// tests can hand in plain maps.
package pkgconfig
