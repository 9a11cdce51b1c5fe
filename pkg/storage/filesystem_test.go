package storage

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("9A/2024-05-01/a.json", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = store.Save("9A/2024-05-01/a.json", []byte(`{"v":2}`))
	require.NoError(t, err)
	_, err = store.Save("9A/2024-05-02/b.json", []byte(`{}`))
	require.NoError(t, err)

	data, err := store.Read("9A/2024-05-01/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	names, err := store.List("9A")
	require.NoError(t, err)
	assert.Equal(t, []string{"9A/2024-05-01/a.json", "9A/2024-05-02/b.json"}, names)

	require.NoError(t, store.Delete("9A/2024-05-01/a.json"))
	_, err = store.Read("9A/2024-05-01/a.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.json", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Read("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStorageListMissingDir(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	names, err := store.List("nothing-here")
	require.NoError(t, err)
	assert.Empty(t, names)
}
