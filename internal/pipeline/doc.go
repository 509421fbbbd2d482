// Package pipeline runs ordered phases over an episode workspace, using
// content fingerprints recorded in the manifest to skip phases whose inputs,
// settings, and outputs are unchanged.
package pipeline
