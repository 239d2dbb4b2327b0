package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/storage"
)

// DefaultMaxSourceBytes limits the size of a single function source.
const DefaultMaxSourceBytes = 1 << 20

var (
	ErrSourceTooLarge  = errors.New("function source exceeds the size limit")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

type SourceOptions struct {
	// BaseDir anchors relative source paths.
	BaseDir        string
	MaxSourceBytes int64
	// Storage serves s3:// references. It may be nil.
	Storage storage.StorageService
}

type SourceLoader struct {
	baseDir        string
	maxSourceBytes int64
	storage        storage.StorageService
}

// NewSourceLoader creates a loader for inline, file and object storage sources.
func NewSourceLoader(opts SourceOptions) *SourceLoader {
	maxSourceBytes := opts.MaxSourceBytes
	if maxSourceBytes <= 0 {
		maxSourceBytes = DefaultMaxSourceBytes
	}
	return &SourceLoader{
		baseDir:        opts.BaseDir,
		maxSourceBytes: maxSourceBytes,
		storage:        opts.Storage,
	}
}

// MaxSourceBytes returns the configured size limit.
func (l *SourceLoader) MaxSourceBytes() int64 {
	return l.maxSourceBytes
}

// LoadSource returns the source text of a function regardless of where it lives.
func (l *SourceLoader) LoadSource(ctx context.Context, spec *function.Spec) (string, error) {
	if spec.IsInline() {
		if int64(len(spec.Source)) > l.maxSourceBytes {
			return "", fmt.Errorf("%w: %d bytes", ErrSourceTooLarge, len(spec.Source))
		}
		return spec.Source, nil
	}
	if storage.IsReference(spec.SourcePath) {
		return l.loadObject(ctx, spec.SourcePath)
	}
	return l.loadFile(spec.SourcePath)
}

func (l *SourceLoader) loadObject(ctx context.Context, ref string) (string, error) {
	if l.storage == nil {
		return "", fmt.Errorf("%w: %s", ErrStorageDisabled, ref)
	}
	bucket, object, err := storage.ParseReference(ref)
	if err != nil {
		return "", err
	}
	content, err := l.storage.ReadObject(ctx, bucket, object, l.maxSourceBytes)
	if err != nil {
		if errors.Is(err, storage.ErrObjectTooLarge) {
			return "", fmt.Errorf("%w: %v", ErrSourceTooLarge, err)
		}
		return "", err
	}
	return string(content), nil
}

func (l *SourceLoader) loadFile(path string) (string, error) {
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, l.maxSourceBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	if int64(len(content)) > l.maxSourceBytes {
		return "", fmt.Errorf("%w: %s", ErrSourceTooLarge, path)
	}
	return string(content), nil
}
