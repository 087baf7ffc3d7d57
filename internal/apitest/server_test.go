package apitest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postLogin(t *testing.T, s *Server, username, password string) *http.Response {
	form := url.Values{"grant_type": {"password"}, "username": {username}, "password": {password}}
	resp, err := http.PostForm(s.URL+LoginPath, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postCSV(t *testing.T, s *Server, token, contentType, content string) *http.Response {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="users.csv"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(t, w.Close())

	q := url.Values{"core_count": {"1"}, "memory": {"512"}, "duration": {"0"}, "prefix": {"/home"}}
	req, err := http.NewRequest(http.MethodPost, s.URL+UploadPath+"?"+q.Encode(), &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLogin(t *testing.T) {
	s := New(t)

	resp := postLogin(t, s, AdminUser, AdminPassword)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["access_token"])
	assert.Equal(t, "Bearer", body["token_type"])

	resp = postLogin(t, s, AdminUser, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 2, s.Requests(LoginPath))
}

func TestUpload(t *testing.T) {
	s := New(t)

	resp := postCSV(t, s, s.Token(AdminUser), "text/csv", "first_name,last_name\nAda,Lovelace\n,\nAlan,Turing\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries [][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 3)
	assert.Equal(t, ResponseHeader, entries[0])
	assert.Equal(t, "Ada", entries[1][0])
	assert.True(t, strings.HasPrefix(entries[1][2], "adalovelace"))
	assert.Len(t, entries[1][3], 8)

	upload, ok := s.LastUpload()
	require.True(t, ok)
	assert.Equal(t, "users.csv", upload.Filename)
	assert.Equal(t, "/home", upload.Query.Get("prefix"))
}

func TestUpload_Rejections(t *testing.T) {
	s := New(t)

	assert.Equal(t, http.StatusUnauthorized, postCSV(t, s, "", "text/csv", "first_name,last_name\na,b").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, postCSV(t, s, "garbage", "text/csv", "first_name,last_name\na,b").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, postCSV(t, s, s.Token("student"), "text/csv", "first_name,last_name\na,b").StatusCode)
	assert.Equal(t, http.StatusBadRequest, postCSV(t, s, s.Token(AdminUser), "text/plain", "first_name,last_name\na,b").StatusCode)
	assert.Equal(t, http.StatusBadRequest, postCSV(t, s, s.Token(AdminUser), "text/csv", "name\na").StatusCode)
	assert.Equal(t, http.StatusBadRequest, postCSV(t, s, s.Token(AdminUser), "text/csv", "first_name,last_name\n").StatusCode)
}

func TestOverrideUpload(t *testing.T) {
	s := New(t)
	s.OverrideUpload(http.StatusOK, "not json")

	resp := postCSV(t, s, s.Token(AdminUser), "text/csv", "first_name,last_name\na,b")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.Requests(UploadPath))
}
