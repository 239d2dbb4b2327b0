package defers

import (
	"errors"
	"sync"
)

// Defers maintains an ordered lifo list of cleanup functions. Every function
// runs exactly once, even if an earlier one fails or panics.
type Defers interface {
	// Add adds a new function to the beginning of the list.
	Add(fn func())

	// AddErr adds a new function whose error is reported by CallAll.
	AddErr(fn func() error)

	// CallAll invokes all deferred functions in reverse order and joins their errors.
	// Subsequent calls are no-ops.
	CallAll() error
}

type defaultDefers struct {
	// A mutex is used to lock the resources while they are used by the defers.
	sync.Mutex

	fs     []func() error
	called bool
}

// NewDefers returns a new instance of Defers.
func NewDefers() Defers {
	return &defaultDefers{
		fs: []func() error{},
	}
}

func (df *defaultDefers) Add(fn func()) {
	df.AddErr(func() error {
		fn()
		return nil
	})
}

func (df *defaultDefers) AddErr(fn func() error) {
	df.Lock()
	defer df.Unlock()
	df.fs = append([]func() error{fn}, df.fs...)
}

func (df *defaultDefers) CallAll() error {
	df.Lock()
	if df.called {
		df.Unlock()
		return nil
	}
	df.called = true
	fs := df.fs
	df.fs = nil
	df.Unlock()

	var errs []error
	for _, fn := range fs {
		if err := call(fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// call runs fn and converts a panic into an error so the remaining functions still run.
func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

// PanicError reports a panic raised by a deferred function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "deferred function panicked"
}
