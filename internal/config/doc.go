// Package config loads, normalizes, and validates videoflix configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ALLOWED_CATEGORIES. The Config type centralizes every knob the worker and CLI
// need: storage and scratch directories, the encoder invocation, the ordered
// rendition profiles, and the category keyword list.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical profile names, and clear validation errors.
package config
