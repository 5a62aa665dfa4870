package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipvault/internal/config"
	"clipvault/internal/logging"
	"clipvault/internal/media/ffprobe"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

type inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Observer receives the outcome of every ffmpeg run.
type Observer func(op Op, elapsed time.Duration, err error)

// FFmpeg implements Engine by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpegBinary  string
	ffprobeBinary string
	timeout       time.Duration
	logger        *slog.Logger
	run           commandRunner
	inspect       inspector
	observe       Observer
}

// Option customizes an FFmpeg engine.
type Option func(*FFmpeg)

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(r commandRunner) Option {
	return func(f *FFmpeg) {
		if r != nil {
			f.run = r
		}
	}
}

// WithInspector replaces the ffprobe invocation.
func WithInspector(i func(ctx context.Context, binary, path string) (ffprobe.Result, error)) Option {
	return func(f *FFmpeg) {
		if i != nil {
			f.inspect = i
		}
	}
}

// WithObserver registers a callback for run latency and outcome.
func WithObserver(o Observer) Option {
	return func(f *FFmpeg) {
		f.observe = o
	}
}

// NewFFmpeg constructs an engine from media configuration.
func NewFFmpeg(cfg *config.Config, logger *slog.Logger, opts ...Option) *FFmpeg {
	f := &FFmpeg{
		ffmpegBinary:  "ffmpeg",
		ffprobeBinary: "ffprobe",
		timeout:       5 * time.Minute,
		logger:        logging.NewComponentLogger(logger, "transcode"),
		run:           defaultCommandRunner,
		inspect:       ffprobe.Inspect,
	}
	if cfg != nil {
		if b := strings.TrimSpace(cfg.Media.FFmpegBinary); b != "" {
			f.ffmpegBinary = b
		}
		if b := strings.TrimSpace(cfg.Media.FFprobeBinary); b != "" {
			f.ffprobeBinary = b
		}
		if d := cfg.TranscodeTimeout(); d > 0 {
			f.timeout = d
		}
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Probe measures the container duration of path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	runCtx, cancel := f.detach(ctx)
	defer cancel()

	result, err := f.inspect(runCtx, f.ffprobeBinary, path)
	if err != nil {
		return 0, err
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, fmt.Errorf("ffprobe: no usable duration for %s", filepath.Base(path))
	}
	return duration, nil
}

// Transform runs ffmpeg for spec. On failure any partial output is removed.
func (f *FFmpeg) Transform(ctx context.Context, spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	runCtx, cancel := f.detach(ctx)
	defer cancel()

	var (
		args    []string
		cleanup func()
	)
	switch spec.Op {
	case OpTrim:
		args = trimArgs(spec)
	case OpConcat:
		listPath, err := writeConcatList(filepath.Dir(spec.Output), spec.Inputs)
		if err != nil {
			return "", err
		}
		cleanup = func() { _ = os.Remove(listPath) }
		args = concatArgs(listPath, spec.Output)
	}
	if cleanup != nil {
		defer cleanup()
	}

	f.logger.Debug("executing ffmpeg",
		logging.String("op", string(spec.Op)),
		logging.String("output", filepath.Base(spec.Output)),
		logging.Int("inputs", inputCount(spec)),
	)

	started := time.Now()
	err := f.run(runCtx, f.ffmpegBinary, args...)
	elapsed := time.Since(started)
	if err == nil {
		if _, statErr := os.Stat(spec.Output); statErr != nil {
			err = fmt.Errorf("ffmpeg did not produce output file: %w", statErr)
		}
	}
	if f.observe != nil {
		f.observe(spec.Op, elapsed, err)
	}
	if err != nil {
		_ = os.Remove(spec.Output)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ffmpeg %s timed out after %s: %w", spec.Op, f.timeout, err)
		}
		return "", fmt.Errorf("ffmpeg %s: %w", spec.Op, err)
	}

	f.logger.Info("ffmpeg finished",
		logging.String("op", string(spec.Op)),
		logging.String("output", filepath.Base(spec.Output)),
		logging.Duration("elapsed", elapsed),
	)
	return spec.Output, nil
}

// detach drops the caller's cancellation but keeps its values.
func (f *FFmpeg) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
}

var encodeArgs = []string{"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", "-movflags", "+faststart"}

func trimArgs(spec Spec) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", formatSeconds(spec.Start),
		"-i", spec.Input,
		"-t", formatSeconds(spec.Duration),
	}
	args = append(args, encodeArgs...)
	return append(args, spec.Output)
}

func concatArgs(listPath, output string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
	}
	args = append(args, encodeArgs...)
	return append(args, output)
}

func writeConcatList(dir string, inputs []string) (string, error) {
	file, err := os.CreateTemp(dir, ".concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			abs = in
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	if _, err := file.WriteString(b.String()); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write concat list: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("close concat list: %w", err)
	}
	return file.Name(), nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func inputCount(spec Spec) int {
	if spec.Op == OpConcat {
		return len(spec.Inputs)
	}
	return 1
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
