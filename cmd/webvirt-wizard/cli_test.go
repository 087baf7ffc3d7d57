package main

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestOperatorError(t *testing.T) {
	wrapped := fmt.Errorf("upload: %w", apperr.Wrap(apperr.Submission, "An error occurred while uploading the data.", errors.New("HTTP 500")))
	assert.EqualError(t, operatorError(wrapped), "An error occurred while uploading the data.")

	plain := errors.New("failed to read users.csv")
	assert.Same(t, plain, operatorError(plain))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("Warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestApiConfigValidate(t *testing.T) {
	assert.Error(t, ApiConfig{}.validate())
	assert.NoError(t, ApiConfig{BaseURL: "http://localhost:8000"}.validate())
}
