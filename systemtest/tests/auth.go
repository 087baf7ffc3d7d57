package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"testing"

	"github.com/pzerone/webvirt-wizard/internal/api/http/dto"
	"github.com/pzerone/webvirt-wizard/internal/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T, baseURL string) {
	resp, body := get(t, baseURL, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "absent", health.Session)
}

func TestLogin(t *testing.T, baseURL string) {
	t.Run("home is guarded", func(t *testing.T) {
		resp, _ := get(t, baseURL, "/home")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, body := postForm(t, baseURL, "/login", url.Values{"username": {apitest.AdminUser}, "password": {"wrongpassword"}})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body, "Login failed! Please check your credentials.")
	})

	t.Run("success", func(t *testing.T) {
		resp, _ := postForm(t, baseURL, "/login", url.Values{"username": {apitest.AdminUser}, "password": {apitest.AdminPassword}})
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/home", resp.Header.Get("Location"))
	})
}

func TestSessionSurvivesRestart(t *testing.T, baseURL string) {
	resp, _ := get(t, baseURL, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))

	resp, body := get(t, baseURL, "/home")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Signed in as "+apitest.AdminUser)
}

func TestLogout(t *testing.T, baseURL, sessionFile string) {
	resp, _ := postForm(t, baseURL, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, err := os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(err))

	resp, _ = get(t, baseURL, "/home")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
