package recycle

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedComposition = errors.New("unsupported composition")
	ErrDoubleRelease          = errors.New("node is already pooled")
	ErrPoolNotFound           = errors.New("pool not found")
	ErrPoolExists             = errors.New("pool already exists")
	ErrNodeNotFound           = errors.New("node not found")
)

// UnsupportedError names the facet type that has no registered mapper.
type UnsupportedError struct {
	FacetType   string
	Composition string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: facet type %q in %s has no mapper", ErrUnsupportedComposition, e.FacetType, e.Composition)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedComposition }
