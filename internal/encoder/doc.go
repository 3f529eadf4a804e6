// Package encoder invokes the external transcoding binary for one source file
// and one rendition profile.
//
// The binary is executed directly from an argument vector, never through a
// shell. Every invocation runs under a hard timeout; a timed out encode is
// reported as ErrEncodeFailed and additionally carries services.ErrTimeout.
// A missing source is reported as ErrSourceMissing without starting the
// process.
package encoder
