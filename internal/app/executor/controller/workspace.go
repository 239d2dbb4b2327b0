package controller

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	workspacePrefix = "fnexec-"
	tmpDirName      = ".tmp"
)

// workspace is the private directory of one invocation.
type workspace struct {
	path string
}

func newWorkspace(root string) (*workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	path := filepath.Join(root, workspacePrefix+uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := os.Mkdir(filepath.Join(path, tmpDirName), 0o700); err != nil {
		os.RemoveAll(path)
		return nil, fmt.Errorf("failed to create workspace tmp dir: %w", err)
	}
	return &workspace{path: path}, nil
}

func (w *workspace) Path() string {
	return w.path
}

func (w *workspace) TmpDir() string {
	return filepath.Join(w.path, tmpDirName)
}

// WriteFiles writes the harness files. Names must stay inside the workspace.
func (w *workspace) WriteFiles(files map[string][]byte) error {
	for name, content := range files {
		if !filepath.IsLocal(name) {
			return fmt.Errorf("harness file escapes the workspace: %q", name)
		}
		target := filepath.Join(w.path, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(target, content, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// Remove deletes the workspace. Read-only directories left behind by
// toolchains are made writable before a second attempt.
func (w *workspace) Remove() error {
	if err := os.RemoveAll(w.path); err == nil {
		return nil
	}
	_ = filepath.WalkDir(w.path, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = os.Chmod(path, 0o700)
		}
		return nil
	})
	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	return nil
}
