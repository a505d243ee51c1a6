package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundf("missing")))
	assert.Equal(t, KindConflict, KindOf(Conflictf("dup")))
	assert.Equal(t, KindGone, KindOf(Gonef("ended")))
	assert.Equal(t, KindTransient, KindOf(Transientf("retry")))
	assert.Equal(t, KindFatal, KindOf(Fatalf("broken")))
}

func TestKindOfUnclassified(t *testing.T) {
	// Plain errors must surface as internal, never as retryable.
	assert.Equal(t, KindFatal, KindOf(errors.New("plain")))
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := Conflictf("idempotency key reused")
	outer := fmt.Errorf("handler: %w", inner)
	assert.Equal(t, KindConflict, KindOf(outer))
	assert.True(t, IsKind(outer, KindConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindTransient, cause, "kv store unavailable")

	assert.Equal(t, KindTransient, KindOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "kv store unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   ErrKind
		status int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindGone, http.StatusGone},
		{KindTransient, http.StatusServiceUnavailable},
		{KindFatal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.kind), string(tt.kind))
	}
}
