package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, KindValidation, KindOf(Validation("description")))
	require.Equal(t, KindNotFound, KindOf(NotFound("reflink %d not found", 7)))
	require.Equal(t, KindConflict, KindOf(Conflict("duplicate")))
	require.Equal(t, KindForbidden, KindOf(Forbidden("not yours")))
	require.Equal(t, KindUnauthorized, KindOf(Unauthorized("no identity")))
	require.Equal(t, KindTransient, KindOf(errors.New("raw error")))
	require.Equal(t, KindTransient, KindOf(Transient("query failed", errors.New("timeout"))))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer context: %w", NotFound("reflink %d not found", 7))
	require.True(t, IsNotFound(err))
}

func TestTransient_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("insert edges", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "insert edges")
	require.Contains(t, err.Error(), "connection reset")
}
