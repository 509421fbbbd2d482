// Package media wraps the external ffmpeg and ffprobe binaries for probing
// and single-stream audio operations.
package media
