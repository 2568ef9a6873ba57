package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictError_UnwrapsToConflict(t *testing.T) {
	err := NewConflict(CodeAlreadyPromoted, "candidate %s already promoted", "abc")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "ALREADY_PROMOTED: candidate abc already promoted", err.Error())
}

func TestConflictError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("promoting action item: %w", NewConflict(CodeNotInInvestigation, "status is intake"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, CodeNotInInvestigation, ConflictCode(err))
}

func TestConflictCode(t *testing.T) {
	assert.Equal(t, CodeInvalidTransition, ConflictCode(NewConflict(CodeInvalidTransition, "closed is terminal")))
	assert.Equal(t, "CONFLICT", ConflictCode(ErrConflict))
	assert.Equal(t, "CONFLICT", ConflictCode(fmt.Errorf("wrapped: %w", ErrConflict)))
	assert.Equal(t, "", ConflictCode(ErrNotFound))
	assert.Equal(t, "", ConflictCode(nil))
}

func TestConflictError_CodeOnlyMessage(t *testing.T) {
	err := &ConflictError{Code: CodeInvestigationClosed}
	assert.Equal(t, CodeInvestigationClosed, err.Error())
}
