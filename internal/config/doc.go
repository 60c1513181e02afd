// Package config loads, normalizes, and validates vidshelf configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDSHELF_HOST. The Config type centralizes the backend endpoint, reconnect
// policy, logging, and journal settings so the CLI resolves everything in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
