// Package ffprobe runs ffprobe and decodes the subset of its JSON output the
// clip pipeline relies on: container duration and stream kinds.
//
// Inspect executes the binary; Parse decodes a captured payload so callers
// and tests can work from recorded output.
package ffprobe
