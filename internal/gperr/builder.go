package gperr

import (
	"fmt"
	"sync"
)

// Builder collects errors from multiple sources and
// builds a single Error with the given subject.
//
// It is safe for concurrent use.
type Builder struct {
	about string
	errs  []error
	mu    sync.Mutex
}

func NewBuilder(about string) *Builder {
	return &Builder{about: about}
}

func (b *Builder) HasError() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.errs) > 0
}

// Error returns nil if no error was added.
func (b *Builder) Error() Error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.errs) == 0 {
		return nil
	}
	if b.about == "" {
		return &nestedError{Extras: b.errs}
	}
	return &nestedError{Err: New(b.about), Extras: b.errs}
}

// Add adds err to the builder, nil is a no-op.
func (b *Builder) Add(err error) *Builder {
	if err == nil {
		return b
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, err)
	return b
}

func (b *Builder) Addf(format string, args ...any) *Builder {
	return b.Add(fmt.Errorf(format, args...))
}
