package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkeeper/internal/common"
)

func TestTokenStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store := NewTokenStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, common.ErrorNotFound)

	pair := &TokenPair{AccessToken: "acc", RefreshToken: "ref"}
	require.NoError(t, store.Save(pair))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, pair, loaded)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// clearing twice is fine
	require.NoError(t, store.Clear())
}

func TestTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewTokenStore(path)

	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading token file")
}
