// Package config loads and validates the TOML configuration file and the
// environment-sourced service credentials.
package config
