package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaerialmap/oam-mirror/pkg/errors"
)

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()

	_, found, err := store.Get("state.json")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put("state.json", []byte("{}"), "application/json"))

	data, found, err := store.Get("state.json")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("{}"), data)

	object, ok := store.Object("state.json")
	require.True(t, ok)
	assert.Equal(t, "application/json", object.ContentType)
}

func TestMemStoreList(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Put("meta/b", nil, "application/json"))
	require.NoError(t, store.Put("meta/a", nil, "application/json"))
	require.NoError(t, store.Put("state.json", nil, "application/json"))

	keys, err := store.List("meta/")
	require.NoError(t, err)
	assert.Equal(t, []string{"meta/a", "meta/b"}, keys)

	all, err := store.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"meta/a", "meta/b", "state.json"}, all)
}

func TestMemStoreInjectedErrors(t *testing.T) {
	store := NewMemStore()
	store.PutErr = func(key string) error {
		if key == "meta/bad" {
			return errors.New("put failed")
		}
		return nil
	}

	require.NoError(t, store.Put("meta/good", nil, "application/json"))
	assert.Error(t, store.Put("meta/bad", nil, "application/json"))
	assert.Equal(t, []string{"meta/good"}, store.PutOrder())
}
