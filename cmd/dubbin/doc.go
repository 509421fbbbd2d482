// Package main hosts the dubbin CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the dubbing pipeline over episode
// workspaces, inspects manifest state, blesses hand-edited artifacts, and
// scaffolds configuration. It centralizes configuration resolution, workspace
// locking, and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
