// Package config loads, normalizes, and validates motionmux configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the MOTIONMUX_MUXER environment
// fallback for the muxer binary. The ledger path defaults to
// processed_files.json in the working directory and is made absolute during
// normalization, so every component sees the same file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
