package lferr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesRemediation(t *testing.T) {
	e := New(Validation, "add a tests.manual entry", "WU-1 has no manual tests")
	assert.Contains(t, e.Error(), "VALIDATION")
	assert.Contains(t, e.Error(), "add a tests.manual entry")
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(Git, cause, "retry the push", "push failed")
	assert.Equal(t, cause, errors.Unwrap(e))
	assert.True(t, errors.Is(e, cause))
}

func TestOfFindsWrappedCoordinatorError(t *testing.T) {
	e := New(LaneBusy, "wait for the holder to release", "lane Core is busy")
	wrapped := fmt.Errorf("claim failed: %w", e)
	found, ok := Of(wrapped)
	assert.True(t, ok)
	assert.Equal(t, LaneBusy, found.Kind)
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("unstructured")))
	assert.Equal(t, 2, ExitCode(New(Validation, "", "x")))
	assert.Equal(t, 4, ExitCode(New(LaneBusy, "", "x")))
	assert.Equal(t, 70, ExitCode(New(Fatal, "", "x")))
}
