package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedType   ErrorType
		expectedStatus int
	}{
		{"Custom error passes through", New409Error("Email already registered"), ErrorTypeConflict, http.StatusConflict},
		{"Wrapped custom error", fmt.Errorf("lookup: %w", New404Error("Chat not found")), ErrorTypeNotFound, http.StatusNotFound},
		{"Sentinel not found", fmt.Errorf("chat 1: %w", ErrNotFound), ErrorTypeNotFound, http.StatusNotFound},
		{"Sentinel conflict", ErrConflict, ErrorTypeConflict, http.StatusConflict},
		{"Sentinel unauthorized", ErrUnauthorized, ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"Upstream", fmt.Errorf("%w: refused", ErrUpstreamUnavailable), ErrorTypeUpstream, http.StatusBadGateway},
		{"Anything else", stderrors.New("boom"), ErrorTypeInternalServerError, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			customErr := FromError(tc.err)
			assert.Equal(t, tc.expectedType, customErr.Type)
			assert.Equal(t, tc.expectedStatus, customErr.StatusCode)
		})
	}
}

func TestCustomErrorUnwrap(t *testing.T) {
	assert.True(t, stderrors.Is(New404Error("x"), ErrNotFound))
	assert.True(t, stderrors.Is(New409Error("x"), ErrConflict))
	assert.True(t, stderrors.Is(New401Error(""), ErrUnauthorized))
	assert.Equal(t, "Unauthorized access", New401Error("").Message)
	assert.False(t, stderrors.Is(New400Error("x"), ErrNotFound))
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/chats/1", nil)

	HandleError(c, stderrors.New("database exploded"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, c.IsAborted())

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["error"]["type"])
	assert.Equal(t, "An unexpected error occurred", body["error"]["message"])
	assert.NotContains(t, w.Body.String(), "database exploded")
}
