package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"duplicate", services.ErrDuplicateUser, http.StatusBadRequest, `{"error":"User already exists"}`},
		{"credentials", services.ErrInvalidCredentials, http.StatusBadRequest, `{"error":"Invalid credentials"}`},
		{"wrapped not found", fmt.Errorf("%w: id 3", services.ErrTaskNotFound), http.StatusNotFound, `{"error":"Task not found"}`},
		{"validation", &services.ValidationError{Fields: map[string]string{"title": "must be provided"}}, http.StatusBadRequest,
			`{"error":"title must be provided","fields":{"title":"must be provided"}}`},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"Server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestSystemHealthInRange(t *testing.T) {
	h := SystemHealth()
	assert.GreaterOrEqual(t, h, 0.0)
	assert.LessOrEqual(t, h, 100.0)
}
