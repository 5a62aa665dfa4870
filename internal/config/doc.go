// Package config loads, normalizes, and validates clipvault configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPVAULT_API_TOKEN and CLIPVAULT_TOKEN_SECRET. The Config type centralizes
// every knob the daemon and CLI need: where clip bytes and the asset database
// live, how the HTTP API is bound and gated, how capability tokens are signed,
// and which admission limits uploads must satisfy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
