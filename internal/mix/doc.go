// Package mix places synthesized segments on the original timeline and
// renders the final audio track through a single ffmpeg filter graph.
package mix
