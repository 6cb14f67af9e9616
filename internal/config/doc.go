// Package config loads, normalizes, and validates himyc configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the HIMYC_DATA_DIR environment
// fallback. The Config type centralizes the project directories, alignment
// thresholds, propagation settings, and logging knobs so the CLI and the
// workbench services discover them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical strategy names, and clear validation errors.
package config
