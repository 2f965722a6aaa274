package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFault_Error(t *testing.T) {
	f := NewFault(ErrTimeout, "waited %dms", 5000)
	assert.Equal(t, "timeout: waited 5000ms", f.Error())
}

func TestFault_ErrorIncludesLastState(t *testing.T) {
	f := NewFault(ErrTimeout, "waited 5000ms").WithState("maximized")
	assert.Equal(t, "timeout: waited 5000ms (last observed: maximized)", f.Error())
}

func TestFault_ErrorOnNilReceiver(t *testing.T) {
	var f *Fault
	assert.Equal(t, "", f.Error())
}

func TestFault_WithStateOnNilReceiver(t *testing.T) {
	var f *Fault
	assert.Nil(t, f.WithState("x"))
}

func TestErrorKind_IsTransient(t *testing.T) {
	transient := []ErrorKind{ErrTimeout, ErrWindowNotFound, ErrElementNotFound, ErrElementStale}
	for _, kind := range transient {
		assert.True(t, kind.IsTransient(), "%s should be transient", kind)
	}

	permanent := []ErrorKind{ErrInvalidAction, ErrSecureDesktopActive, ErrRateLimited, ErrSystem}
	for _, kind := range permanent {
		assert.False(t, kind.IsTransient(), "%s should not be transient", kind)
	}
}
