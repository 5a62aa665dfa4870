package testsupport

import (
	"context"
	"fmt"
	"os"
	"sync"

	"clipvault/internal/transcode"
)

// FakeEngine is an in-memory transcode.Engine. Probe answers from registered
// durations; Transform writes a small file and registers the derived
// duration (trim length or sum of inputs).
type FakeEngine struct {
	mu        sync.Mutex
	durations map[string]float64

	// ProbeErr, when set, fails every Probe.
	ProbeErr error
	// TransformErr, when set, fails every Transform after writing partial output.
	TransformErr error

	Probes     []string
	Transforms []transcode.Spec
}

// NewFakeEngine returns an engine with no known files.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{durations: make(map[string]float64)}
}

// SetDuration registers the duration Probe reports for path.
func (f *FakeEngine) SetDuration(path string, seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[path] = seconds
}

func (f *FakeEngine) Probe(_ context.Context, path string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Probes = append(f.Probes, path)
	if f.ProbeErr != nil {
		return 0, f.ProbeErr
	}
	d, ok := f.durations[path]
	if !ok {
		return 0, fmt.Errorf("fake probe: unknown media %s", path)
	}
	return d, nil
}

func (f *FakeEngine) Transform(_ context.Context, spec transcode.Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Transforms = append(f.Transforms, spec)

	if err := os.WriteFile(spec.Output, []byte("fake-"+string(spec.Op)), 0o644); err != nil {
		return "", err
	}
	if f.TransformErr != nil {
		return "", f.TransformErr
	}

	switch spec.Op {
	case transcode.OpTrim:
		f.durations[spec.Output] = spec.Duration
	case transcode.OpConcat:
		total := 0.0
		for _, in := range spec.Inputs {
			total += f.durations[in]
		}
		f.durations[spec.Output] = total
	}
	return spec.Output, nil
}

// TransformCount returns how many transforms were attempted.
func (f *FakeEngine) TransformCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Transforms)
}
