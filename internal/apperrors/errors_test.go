package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_KindsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   error
		status int
	}{
		{"validation", apperrors.NewValidationError("UNBALANCED", "debits %s != credits %s", "10", "9"), apperrors.ErrValidation, http.StatusBadRequest},
		{"not found", apperrors.NewNotFoundError("account %s", "1000"), apperrors.ErrNotFound, http.StatusNotFound},
		{"conflict", apperrors.NewConflictError("DUPLICATE_PERIOD", "period exists"), apperrors.ErrConflict, http.StatusConflict},
		{"state", apperrors.NewStateError("PERIOD_NOT_OPEN", "period closed"), apperrors.ErrState, http.StatusUnprocessableEntity},
		{"external", apperrors.NewExternalError("publish failed", errors.New("broker down")), apperrors.ErrExternal, http.StatusBadGateway},
		{"internal", apperrors.NewAppError(500, "db down", errors.New("boom")), apperrors.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.Equal(t, tt.status, apperrors.HTTPStatus(wrapped))
		})
	}
}

func TestAppError_CodeAndMessage(t *testing.T) {
	err := fmt.Errorf("post: %w", apperrors.NewStateError("ENTRY_VOIDED", "entry %s is voided", "JE-1"))

	assert.Equal(t, "ENTRY_VOIDED", apperrors.Code(err))
	assert.Contains(t, err.Error(), "entry JE-1 is voided")
	assert.Equal(t, "INTERNAL_ERROR", apperrors.Code(errors.New("plain")))
	assert.NotErrorIs(t, err, apperrors.ErrValidation)
}

func TestNewAppError_MapsStatusToKind(t *testing.T) {
	assert.ErrorIs(t, apperrors.NewAppError(http.StatusConflict, "dup", nil), apperrors.ErrConflict)
	assert.ErrorIs(t, apperrors.NewAppError(http.StatusNotFound, "missing", nil), apperrors.ErrNotFound)
	assert.ErrorIs(t, apperrors.NewAppError(http.StatusBadRequest, "bad token", nil), apperrors.ErrValidation)
}
