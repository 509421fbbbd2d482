// Package logging wraps log/slog construction with console and JSON handlers,
// attribute helpers, and context carriage of the active phase and episode.
package logging
