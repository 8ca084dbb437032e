package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondWithError_LogsCause(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := httptest.NewRecorder()

	respondWithError(zap.New(core), rec, http.StatusInternalServerError, "Failed to get signals", errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to get signals"}`, rec.Body.String())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, int64(http.StatusInternalServerError), fields["status"])
	assert.Equal(t, "db down", fields["error"])
}

func TestRespondWithError_NoCauseNoLog(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := httptest.NewRecorder()

	respondWithError(zap.New(core), rec, http.StatusNotFound, "Signal not found", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Signal not found"}`, rec.Body.String())
	assert.Zero(t, logs.Len())
}
