package approval

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	t.Parallel()

	t.Run("matches sentinel by code", func(t *testing.T) {
		t.Parallel()
		err := NotFoundf("expense %d not found", 42)
		require.ErrorIs(t, err, ErrNotFound)
		require.NotErrorIs(t, err, ErrConflict)
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("decide: %w", Conflictf("version changed"))
		require.ErrorIs(t, err, ErrConflict)
		require.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("wrap keeps cause", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection reset")
		err := Wrap(CodeConflict, cause, "commit failed")
		require.ErrorIs(t, err, ErrConflict)
		require.ErrorIs(t, err, cause)
		require.Equal(t, "CONFLICT: commit failed: connection reset", err.Error())
	})

	t.Run("wrap nil is nil", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, Wrap(CodeNotFound, nil, "ignored"))
	})

	t.Run("unclassified error has no code", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, Code(""), CodeOf(errors.New("plain")))
	})
}

func TestError_Retryable(t *testing.T) {
	t.Parallel()

	var e *Error
	require.ErrorAs(t, Conflictf("busy"), &e)
	require.True(t, e.Retryable())

	require.ErrorAs(t, IllegalStatef("approved"), &e)
	require.False(t, e.Retryable())
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ILLEGAL_STATE: expense is approved", IllegalStatef("expense is %s", "approved").Error())
	require.Equal(t, "VALIDATION_ERROR", ErrValidation.Error())
}
