package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestStatusForWorkflowError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: model.ErrRequestNotFound, want: http.StatusNotFound},
		{name: "invalid attributes", err: model.ErrInvalidRequestAttributes, want: http.StatusBadRequest},
		{name: "unauthorized for level", err: model.ErrUnauthorizedForLevel, want: http.StatusForbidden},
		{name: "finalized", err: model.ErrRequestFinalized, want: http.StatusConflict},
		{name: "level already decided", err: model.ErrLevelAlreadyDecided, want: http.StatusConflict},
		{name: "stale state", err: model.ErrStaleState, want: http.StatusConflict},
		{name: "unknown error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForWorkflowError(tt.err))

			// Services wrap sentinels, so the mapping must see through %w
			wrapped := fmt.Errorf("context: %w", tt.err)
			assert.Equal(t, tt.want, statusForWorkflowError(wrapped))
		})
	}
}
