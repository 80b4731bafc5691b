package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("viewer not initialized")
	ErrAlreadyInitialized = errors.New("viewer already initialized")

	ErrStructureExists   = errors.New("structure already exists")
	ErrStructureNotFound = errors.New("structure not found")
	ErrQuantityExists    = errors.New("quantity already exists")
	ErrQuantityNotFound  = errors.New("quantity not found")
	ErrSizeMismatch      = errors.New("size mismatch")

	ErrGroupExists   = errors.New("group already exists")
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupCycle    = errors.New("group cycle")

	ErrMaterialExists = errors.New("material already exists")
	ErrMaterialLoad   = errors.New("material load error")

	ErrRender          = errors.New("render error")
	ErrSurfaceLost     = errors.New("surface lost")
	ErrSurfaceOutdated = errors.New("surface outdated")
	ErrOutOfMemory     = errors.New("out of memory")
	ErrTimeout         = errors.New("surface timeout")

	ErrIO   = errors.New("io error")
	ErrJSON = errors.New("json error")
)

// SizeMismatchError reports a payload whose length does not match the
// element count of the domain it is attached to.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected %d elements, got %d", e.Expected, e.Actual)
}

func (e *SizeMismatchError) Unwrap() error {
	return ErrSizeMismatch
}

func NewSizeMismatch(expected, actual int) error {
	return &SizeMismatchError{Expected: expected, Actual: actual}
}

func NewRenderError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRender, fmt.Sprintf(format, args...))
}

func NewIOError(err error) error {
	return fmt.Errorf("%w: %w", ErrIO, err)
}

func NewJSONError(err error) error {
	return fmt.Errorf("%w: %w", ErrJSON, err)
}

// IsSurfaceRecoverable reports whether a surface acquisition error only
// requires a reconfigure (or a dropped frame) rather than a shutdown.
func IsSurfaceRecoverable(err error) bool {
	return errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrSurfaceOutdated) || errors.Is(err, ErrTimeout)
}
