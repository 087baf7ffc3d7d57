package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFileStore_GetMissing(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))

	_, ok, err := fs.Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_SetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	fs := NewFileStore(path)

	require.NoError(t, fs.Set(Session{Token: "T", TokenType: "bearer"}))

	s, ok, err := fs.Get()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Session{Token: "T", TokenType: "bearer"}, s)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// The file carries exactly the two persisted entries
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries map[string]string
	require.NoError(t, yaml.Unmarshal(data, &entries))
	assert.Equal(t, map[string]string{"access_token": "T", "token_type": "bearer"}, entries)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, NewFileStore(path).Set(Session{Token: "abc", TokenType: "Bearer"}))

	s, ok, err := NewFileStore(path).Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", s.Token)
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	fs := NewFileStore(path)
	require.NoError(t, fs.Set(Session{Token: "T", TokenType: "bearer"}))

	require.NoError(t, fs.Clear())

	_, ok, err := fs.Get()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, path)

	// Clearing twice is fine
	assert.NoError(t, fs.Clear())
}

func TestFileStore_EmptyTokenIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access_token: \"\"\ntoken_type: bearer\n"), 0600))

	_, ok, err := NewFileStore(path).Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0600))

	_, ok, err := NewFileStore(path).Get()
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore()

	_, ok, err := ms.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ms.Set(Session{Token: "T", TokenType: "bearer"}))
	s, ok, err := ms.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T", s.Token)

	require.NoError(t, ms.Clear())
	_, ok, _ = ms.Get()
	assert.False(t, ok)
}

func TestFileStore_ConcurrentAccess(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if id%2 == 0 {
				_ = fs.Set(Session{Token: "T", TokenType: "bearer"})
			} else {
				_, _, _ = fs.Get()
			}
		}(i)
	}
	wg.Wait()

	s, ok, err := fs.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T", s.Token)
}

func TestOperator(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "admin"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, "admin", Operator(Session{Token: signed}))

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, "ops", Operator(Session{Token: signed}))

	assert.Equal(t, "", Operator(Session{Token: "opaque-token"}))
}
