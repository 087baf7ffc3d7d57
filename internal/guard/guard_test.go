package guard

import (
	"errors"
	"testing"

	"github.com/pzerone/webvirt-wizard/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get() (session.Session, bool, error) {
	return session.Session{}, false, errors.New("disk on fire")
}
func (brokenStore) Set(session.Session) error { return nil }
func (brokenStore) Clear() error              { return nil }

func TestCanEnter(t *testing.T) {
	store := session.NewMemoryStore()
	g := New(store)

	assert.False(t, g.CanEnter())

	require.NoError(t, store.Set(session.Session{Token: "T", TokenType: "bearer"}))
	assert.True(t, g.CanEnter())

	require.NoError(t, store.Clear())
	assert.False(t, g.CanEnter())
}

func TestCanEnter_StoreError(t *testing.T) {
	assert.False(t, New(brokenStore{}).CanEnter())
}
