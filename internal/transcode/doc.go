// Package transcode defines the engine boundary used by the clip pipeline and
// its ffmpeg/ffprobe implementation.
//
// The pipeline only sees Engine: Probe measures a file's duration and
// Transform produces a trim or concatenation at a caller-chosen output path.
// FFmpeg detaches each invocation from the caller's cancellation and bounds
// it with its own timeout, so a client hanging up mid-request does not kill a
// running encode.
package transcode
