package transcode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Op names a transform operation.
type Op string

const (
	OpTrim   Op = "trim"
	OpConcat Op = "concat"
)

// Spec describes a single transform. Trim reads Input from Start for
// Duration seconds; Concat joins Inputs in order.
type Spec struct {
	Op       Op
	Input    string
	Inputs   []string
	Start    float64
	Duration float64
	Output   string
}

// Engine probes and transforms media files.
type Engine interface {
	// Probe returns the duration of path in seconds.
	Probe(ctx context.Context, path string) (float64, error)
	// Transform writes the result of spec to spec.Output and returns that path.
	Transform(ctx context.Context, spec Spec) (string, error)
}

// Validate reports structural problems with a spec.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Output) == "" {
		return errors.New("transform: output path required")
	}
	switch s.Op {
	case OpTrim:
		if strings.TrimSpace(s.Input) == "" {
			return errors.New("trim: input path required")
		}
		if s.Start < 0 {
			return fmt.Errorf("trim: negative start %v", s.Start)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("trim: non-positive duration %v", s.Duration)
		}
	case OpConcat:
		if len(s.Inputs) < 2 {
			return fmt.Errorf("concat: need at least 2 inputs, got %d", len(s.Inputs))
		}
		for _, in := range s.Inputs {
			if strings.TrimSpace(in) == "" {
				return errors.New("concat: empty input path")
			}
		}
	default:
		return fmt.Errorf("transform: unknown op %q", s.Op)
	}
	return nil
}
