package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Prefixes used for minted file names.
const (
	PrefixUpload = "upload"
	PrefixTrim   = "trimmed"
	PrefixMerge  = "merged_video"
)

// Area is a directory holding clip files.
type Area struct {
	root string
}

// Staged describes bytes written into the area by Stage.
type Staged struct {
	Path string
	// Size is the number of bytes written. It never exceeds limit+1, so a
	// value above the limit means the source was longer.
	Size int64
}

// New prepares root and returns an Area rooted there.
func New(root string) (*Area, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Area{root: abs}, nil
}

// Root returns the absolute area directory.
func (a *Area) Root() string {
	return a.root
}

// Allocate returns a fresh, unused path of the form <root>/<prefix>_<uuid><ext>.
// Nothing is created on disk.
func (a *Area) Allocate(prefix, ext string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "clip"
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(a.root, prefix+"_"+uuid.NewString()+ext)
}

// Stage copies at most limit+1 bytes from r into a freshly allocated upload
// path. The caller owns the returned file and must discard it on rejection.
func (a *Area) Stage(r io.Reader, ext string, limit int64) (Staged, error) {
	path := a.Allocate(PrefixUpload, ext)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Staged{}, fmt.Errorf("storage: create staged file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr != nil {
			return Staged{}, fmt.Errorf("storage: write staged file: %w", copyErr)
		}
		return Staged{}, fmt.Errorf("storage: close staged file: %w", closeErr)
	}
	return Staged{Path: path, Size: written}, nil
}

// StageFile copies a local file into the area.
func (a *Area) StageFile(src string, limit int64) (Staged, error) {
	in, err := os.Open(src)
	if err != nil {
		return Staged{}, fmt.Errorf("storage: open source: %w", err)
	}
	defer in.Close()
	return a.Stage(in, filepath.Ext(src), limit)
}

// Contains reports whether path lies inside the area.
func (a *Area) Contains(path string) bool {
	rel, err := filepath.Rel(a.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Remove deletes path, treating an already missing file as success. Paths
// outside the area are refused.
func (a *Area) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if !a.Contains(path) {
		return fmt.Errorf("storage: refusing to remove %q outside %q", path, a.root)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Measure returns the size of a file in bytes.
func Measure(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}
