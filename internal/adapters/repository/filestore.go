package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/okian/civicrank/pkg/metrics"
)

const (
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// FileStore reads and writes data files under a root directory. Writes are
// atomic: content goes to a temp file in the same directory which is then
// renamed over the target.
type FileStore struct {
	root     string
	fileMode fs.FileMode
	log      logger.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, opts ...FileOption) *FileStore {
	s := &FileStore{
		root:     dir,
		fileMode: defaultFileMode,
		log:      logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the data directory.
func (s *FileStore) Root() string { return s.root }

// Path resolves name inside the root. Names must be local relative paths.
func (s *FileStore) Path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, filepath.Clean(name)), nil
}

// Exists reports whether the named file is present.
func (s *FileStore) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// ReadFile returns the raw bytes of the named file; a missing file is ErrNotFound.
func (s *FileStore) ReadFile(name string) ([]byte, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// LoadJSON decodes the named JSON file into v.
func (s *FileStore) LoadJSON(_ context.Context, name string, v any) error {
	b, err := s.ReadFile(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return nil
}

// LoadYAML decodes the named YAML file into v.
func (s *FileStore) LoadYAML(_ context.Context, name string, v any) error {
	b, err := s.ReadFile(name)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return nil
}

// LoadLegislators reads an array of records. A malformed element is logged
// and skipped rather than failing the file; a missing file is ErrNotFound.
func (s *FileStore) LoadLegislators(ctx context.Context, name string) ([]model.Legislator, error) {
	var raw []json.RawMessage
	if err := s.LoadJSON(ctx, name, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Legislator, 0, len(raw))
	for i, r := range raw {
		var l model.Legislator
		if err := json.Unmarshal(r, &l); err != nil {
			s.log.Warn(ctx, "skipping malformed record",
				logger.File(name), logger.Int("index", i), logger.Error(err))
			metrics.RecordSkipped("load", "malformed")
			continue
		}
		l.Normalize()
		out = append(out, l)
	}
	return out, nil
}

// SaveLegislators writes records in the given order.
func (s *FileStore) SaveLegislators(ctx context.Context, name string, records []model.Legislator) error {
	if records == nil {
		records = []model.Legislator{}
	}
	for i := range records {
		records[i].Normalize()
	}
	if err := s.SaveJSON(ctx, name, records); err != nil {
		return err
	}
	metrics.RecordWritten(name, len(records))
	return nil
}

// SaveJSON writes v as two-space indented JSON with a trailing newline.
// Encoding the same value twice yields identical bytes.
func (s *FileStore) SaveJSON(_ context.Context, name string, v any) error {
	b, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	return s.WriteFile(name, b)
}

// WriteFile atomically replaces the named file with b.
func (s *FileStore) WriteFile(name string, b []byte) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrWrite, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	if err := os.Chmod(tmp.Name(), s.fileMode); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	return nil
}

// EncodeJSON renders v the way every data file is written.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
