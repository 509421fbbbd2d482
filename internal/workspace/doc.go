// Package workspace defines the on-disk layout of an episode workspace and
// the show-level registries one directory above it. Artifact keys resolve to
// deterministic paths so phases never hard-code locations.
package workspace
