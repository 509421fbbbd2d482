// Package volcasr talks to the asynchronous file recognition API: submit a
// job for an audio URL, then poll until the provider reports a final result.
package volcasr
