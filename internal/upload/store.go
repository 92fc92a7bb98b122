// Package upload persists incoming form scans to local disk before
// processing. Files land under one directory with collision-proof
// names; by default they are removed again once processed.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned by Save when the payload exceeds the store's
// size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrUnsupportedType is returned for filenames whose extension is not
// an accepted scan format.
var ErrUnsupportedType = errors.New("unsupported file type")

// allowedExtensions lists the scan formats the pipeline can process,
// lowercased with the leading dot.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".pdf":  true,
}

// Store writes uploads into a single directory. It is safe for
// concurrent use; uniqueness comes from the generated names, not
// locking.
type Store struct {
	dir      string
	maxBytes int64
	keep     bool
}

// NewStore creates the upload directory if needed. keep leaves saved
// files on disk after Remove is called, which aids debugging bad
// scans.
func NewStore(dir string, maxBytes int64, keep bool) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload directory must not be empty")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive, got %d", maxBytes)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, keep: keep}, nil
}

// Dir reports the store's directory.
func (s *Store) Dir() string { return s.dir }

// MaxBytes reports the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Allowed reports whether the filename carries an accepted extension.
func (s *Store) Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SanitizeFilename strips any path components and replaces characters
// outside [a-zA-Z0-9._-] with underscores. An empty result becomes
// "upload".
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." {
		base = ""
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}

// Save streams r to disk under a timestamped unique name and returns
// the full path. The original filename survives, sanitized, as the
// suffix so saved files stay recognizable.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	if !s.Allowed(filename) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}

	name := fmt.Sprintf("%s_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
		SanitizeFilename(filename),
	)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}

	// Read one byte past the limit so an exactly-at-limit file passes
	// and anything larger is detected without buffering it all.
	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(path)
		return "", fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.maxBytes)
	}

	return path, nil
}

// Remove deletes a saved file unless the store was configured to keep
// uploads. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if s.keep {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing upload file: %w", err)
	}
	return nil
}
