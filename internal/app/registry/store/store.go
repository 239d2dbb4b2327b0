// Package store persists function specs.
package store

import (
	"context"
	"errors"

	"github.com/dennishilgert/fnexec/pkg/function"
)

var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrFunctionExists   = errors.New("function already exists")
)

type Store interface {
	// Create stores a new function. It fails with ErrFunctionExists for a taken name.
	Create(ctx context.Context, spec *function.Spec) error
	// Update replaces an existing function.
	Update(ctx context.Context, spec *function.Spec) error
	// Load returns the named function or ErrFunctionNotFound.
	Load(ctx context.Context, name string) (*function.Spec, error)
	// List returns all functions ordered by name.
	List(ctx context.Context) ([]*function.Spec, error)
	// Delete removes the named function or fails with ErrFunctionNotFound.
	Delete(ctx context.Context, name string) error
	Close() error
}
