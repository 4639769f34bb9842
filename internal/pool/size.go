package pool

import (
	"errors"
	"fmt"
)

// ErrInvalidSize rejects negative values and counts above capacity.
var ErrInvalidSize = errors.New("invalid pool size")

// Size is a validated (count, capacity) pair with 0 <= Count <= Capacity.
type Size struct {
	Count    int
	Capacity int
}

// NewSize validates count and capacity.
func NewSize(count, capacity int) (Size, error) {
	if count < 0 || capacity < 0 {
		return Size{}, fmt.Errorf("%w: count=%d capacity=%d must not be negative", ErrInvalidSize, count, capacity)
	}
	if count > capacity {
		return Size{}, fmt.Errorf("%w: count=%d exceeds capacity=%d", ErrInvalidSize, count, capacity)
	}
	return Size{Count: count, Capacity: capacity}, nil
}

// Validate re-checks a Size built as a literal.
func (s Size) Validate() error {
	_, err := NewSize(s.Count, s.Capacity)
	return err
}

func (s Size) String() string {
	return fmt.Sprintf("%d/%d", s.Count, s.Capacity)
}
