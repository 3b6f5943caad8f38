package stitchgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/stitchgo/crossfield"
	"github.com/hupe1980/stitchgo/internal/resource"
	"github.com/hupe1980/stitchgo/isoline"
	"github.com/hupe1980/stitchgo/mesh"
)

var (
	// ErrMemoryLimitExceeded is recorded for a row whose solver working set
	// does not fit the configured memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ErrNonconvergence is the per-row error of a solve that did not converge.
type ErrNonconvergence = crossfield.ErrNonconvergence

// ErrInvalidInput indicates a mesh, field or configuration that cannot be
// processed. It aborts the whole item.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidInput struct {
	Field  string
	Reason string
	cause  error
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *ErrInvalidInput) Unwrap() error { return e.cause }

// IsInvalidInput reports whether err is an input validation error.
func IsInvalidInput(err error) bool {
	var ii *ErrInvalidInput
	return errors.As(err, &ii)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var im *mesh.ErrInvalidMesh
	if errors.As(err, &im) {
		return &ErrInvalidInput{Field: im.Field, Reason: im.Reason, cause: err}
	}
	if errors.Is(err, isoline.ErrInvalidSpacing) {
		return &ErrInvalidInput{Field: "yarn_width", Reason: "must be positive and finite", cause: err}
	}
	if errors.Is(err, isoline.ErrTooManyRows) {
		return &ErrInvalidInput{Field: "yarn_width", Reason: "too small for the field range", cause: err}
	}

	return err
}
