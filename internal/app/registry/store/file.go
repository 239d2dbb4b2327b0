package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/utils"
)

const specExtension = ".json"

type fileStore struct {
	lock sync.RWMutex
	dir  string
}

// NewFileStore creates a store keeping one JSON document per function in dir.
func NewFileStore(dir string) (Store, error) {
	if err := utils.EnsureWritableDir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare storage directory: %w", err)
	}
	log.Infof("using file store at %s", dir)
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+specExtension)
}

func checkName(name string) error {
	if !function.ValidName(name) {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return nil
}

func (s *fileStore) Create(ctx context.Context, spec *function.Spec) error {
	if !function.ValidName(spec.Name) {
		return fmt.Errorf("%w: name %q", function.ErrInvalidSpec, spec.Name)
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if exists, _ := utils.FileExists(s.path(spec.Name)); exists {
		return fmt.Errorf("%w: %s", ErrFunctionExists, spec.Name)
	}
	return s.write(spec)
}

func (s *fileStore) Update(ctx context.Context, spec *function.Spec) error {
	if !function.ValidName(spec.Name) {
		return fmt.Errorf("%w: name %q", function.ErrInvalidSpec, spec.Name)
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if exists, _ := utils.FileExists(s.path(spec.Name)); !exists {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, spec.Name)
	}
	return s.write(spec)
}

// write replaces the document atomically through a rename.
func (s *fileStore) write(spec *function.Spec) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode function %s: %w", spec.Name, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".fnexec-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write function %s: %w", spec.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write function %s: %w", spec.Name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(spec.Name)); err != nil {
		return fmt.Errorf("failed to store function %s: %w", spec.Name, err)
	}
	return nil
}

func (s *fileStore) Load(ctx context.Context, name string) (*function.Spec, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.read(s.path(name), name)
}

func (s *fileStore) read(path string, name string) (*function.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
		}
		return nil, fmt.Errorf("failed to read function %s: %w", name, err)
	}
	var spec function.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode function %s: %w", name, err)
	}
	return &spec, nil
}

func (s *fileStore) List(ctx context.Context) ([]*function.Spec, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	specs := make([]*function.Spec, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !strings.HasSuffix(entry.Name(), specExtension) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), specExtension)
		spec, err := s.read(filepath.Join(s.dir, entry.Name()), name)
		if err != nil {
			log.Warnf("skipping unreadable function document %s: %v", entry.Name(), err)
			continue
		}
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

func (s *fileStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
		}
		return fmt.Errorf("failed to delete function %s: %w", name, err)
	}
	return nil
}

func (s *fileStore) Close() error {
	return nil
}
