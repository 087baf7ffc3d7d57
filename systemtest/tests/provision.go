package tests

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/pzerone/webvirt-wizard/internal/apitest"
	"github.com/pzerone/webvirt-wizard/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var provisionForm = url.Values{
	"core_count": {"2"},
	"memory":     {"2048"},
	"duration":   {"1.5"},
	"prefix":     {"/mnt/ldapusers"},
}

func TestProvision(t *testing.T, baseURL string, api *apitest.Server) {
	t.Run("rejects non csv", func(t *testing.T) {
		resp, body := postFile(t, baseURL, "users.json", "application/json", "{}")
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		assert.Contains(t, body, "Please upload a valid CSV file.")
	})

	t.Run("upload and export", func(t *testing.T) {
		before := api.Requests(apitest.UploadPath)

		resp, _ := postFile(t, baseURL, "users.csv", "text/csv", "first_name,last_name\r\nAda,Lovelace\r\nAlan,Turing\r\n")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp, _ = postForm(t, baseURL, "/home/upload", provisionForm)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, before+1, api.Requests(apitest.UploadPath))

		upload, ok := api.LastUpload()
		require.True(t, ok)
		assert.Equal(t, "2", upload.Query.Get("core_count"))
		assert.Equal(t, "2048", upload.Query.Get("memory"))
		assert.Equal(t, "1.5", upload.Query.Get("duration"))
		assert.Equal(t, "/mnt/ldapusers", upload.Query.Get("prefix"))
		assert.True(t, strings.HasPrefix(upload.Authorization, "Bearer "))

		resp, body := get(t, baseURL, "/home/result.csv")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		lines := strings.Split(body, "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "Ada,Lovelace,adalovelace"))
		assert.True(t, strings.HasPrefix(lines[1], "Alan,Turing,alanturing"))
	})
}

func TestStaleSession(t *testing.T, baseURL string, store session.Store, api *apitest.Server) {
	current, ok, err := store.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Set(session.Session{Token: "stale", TokenType: current.TokenType}))
	t.Cleanup(func() { _ = store.Set(current) })

	resp, _ := postFile(t, baseURL, "users.csv", "text/csv", "first_name,last_name\nGrace,Hopper")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	before := api.Requests(apitest.UploadPath)
	resp, body := postForm(t, baseURL, "/home/upload", provisionForm)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Your session was rejected. Please log in again.")
	assert.Equal(t, before+1, api.Requests(apitest.UploadPath))
}
