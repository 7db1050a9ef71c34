package client_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/foodbook-server/client"
)

type failingMirror struct {
	client.MemoryMirror
}

func (f *failingMirror) Save(client.Credentials) error {
	return errors.New("disk full")
}

// stuckMirror keeps whatever it holds because Clear always fails.
type stuckMirror struct {
	client.MemoryMirror
}

func (m *stuckMirror) Clear() error {
	return errors.New("read-only filesystem")
}

func TestStoreSetGet(t *testing.T) {
	store := client.NewCredentialStore(nil)
	require.False(t, store.IsAuthenticated())

	require.NoError(t, store.Set("a1", "r1"))
	require.True(t, store.IsAuthenticated())

	first := store.Get()
	second := store.Get()
	require.Equal(t, first, second)
	require.Equal(t, client.Credentials{Access: "a1", Refresh: "r1"}, first)

	tok, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "a1", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
}

func TestStoreHydratesFromMirror(t *testing.T) {
	mirror := client.NewMemoryMirror()
	require.NoError(t, mirror.Save(client.Credentials{Access: "saved-access", Refresh: "saved-refresh"}))

	store := client.NewCredentialStore(mirror)
	require.True(t, store.IsAuthenticated())
	require.Equal(t, "saved-refresh", store.Get().Refresh)
}

func TestStoreSaveFailureKeepsPriorState(t *testing.T) {
	mirror := &failingMirror{}
	require.NoError(t, mirror.MemoryMirror.Save(client.Credentials{Access: "old", Refresh: "r-old"}))
	store := client.NewCredentialStore(mirror)
	require.Equal(t, "old", store.Get().Access)

	require.Error(t, store.Set("new", "r-new"))
	require.Equal(t, client.Credentials{Access: "old", Refresh: "r-old"}, store.Get())
}

func TestStoreClear(t *testing.T) {
	mirror := client.NewMemoryMirror()
	store := client.NewCredentialStore(mirror)
	require.NoError(t, store.Set("a1", "r1"))

	require.NoError(t, store.Clear())
	require.False(t, store.IsAuthenticated())
	saved, err := mirror.Load()
	require.NoError(t, err)
	require.Empty(t, saved.Access)

	_, err = store.Token()
	require.ErrorIs(t, err, client.ErrNotAuthenticated)
}

func TestStoreClearWhenMirrorFails(t *testing.T) {
	store := client.NewCredentialStore(&stuckMirror{})
	require.NoError(t, store.Set("a1", "r1"))

	require.Error(t, store.Clear())
	require.False(t, store.IsAuthenticated())
	require.Equal(t, client.Credentials{}, store.Get())

	// a new session is kept as usual
	require.NoError(t, store.Set("a2", "r2"))
	require.Equal(t, client.Credentials{Access: "a2", Refresh: "r2"}, store.Get())
}

func TestFileMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "credentials.json")
	mirror := client.NewFileMirror(path)

	empty, err := mirror.Load()
	require.NoError(t, err)
	require.Empty(t, empty.Access)

	require.NoError(t, mirror.Save(client.Credentials{Access: "a1", Refresh: "r1"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second store reads what the first persisted
	store := client.NewCredentialStore(client.NewFileMirror(path))
	require.Equal(t, client.Credentials{Access: "a1", Refresh: "r1"}, store.Get())

	require.NoError(t, store.Clear())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, mirror.Clear())
}

func TestFileMirrorCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := client.NewFileMirror(path).Load()
	require.Error(t, err)

	store := client.NewCredentialStore(client.NewFileMirror(path))
	require.False(t, store.IsAuthenticated())
}
