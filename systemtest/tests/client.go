package tests

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// noRedirect returns a client that reports redirects instead of following
// them so the tests can assert on the guard.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, baseURL, path string) (*http.Response, string) {
	t.Helper()
	resp, err := noRedirect().Get(baseURL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func postForm(t *testing.T, baseURL, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := noRedirect().Post(baseURL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func postFile(t *testing.T, baseURL, filename, contentType, content string) (*http.Response, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := noRedirect().Post(baseURL+"/home/file", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
