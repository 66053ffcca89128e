package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waitingRoom struct {
	Handle    string `json:"handle"`
	Retries   int    `json:"retries"`
	Completed bool   `json:"completed"`
}

func TestBucket_PutGet(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	bucket := store.Bucket("waiting-room")

	var got waitingRoom
	found, err := bucket.Get("rad:git:hnrk", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := waitingRoom{Handle: "cloudhead", Retries: 3, Completed: true}
	require.NoError(t, bucket.Put("rad:git:hnrk", want))

	found, err = bucket.Get("rad:git:hnrk", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestBucket_Overwrite(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	bucket := store.Bucket("settings")
	require.NoError(t, bucket.Put("theme", "light"))
	require.NoError(t, bucket.Put("theme", "dark"))

	var theme string
	found, err := bucket.Get("theme", &theme)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "dark", theme)
}

func TestBucket_Delete(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	bucket := store.Bucket("sessions")
	require.NoError(t, bucket.Put("current", 42))
	require.NoError(t, bucket.Delete("current"))

	var v int
	found, err := bucket.Get("current", &v)
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing key is a no-op.
	assert.NoError(t, bucket.Delete("current"))
}

func TestBucket_Keys(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	bucket := store.Bucket("projects")
	keys, err := bucket.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Keys with path separators must round-trip through escaping.
	require.NoError(t, bucket.Put("rad:git:hnrk/heads", 1))
	require.NoError(t, bucket.Put("plain", 2))

	keys, err = bucket.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rad:git:hnrk/heads", "plain"}, keys)
}

func TestBuckets_Isolated(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Bucket("a").Put("key", "in a"))
	require.NoError(t, store.Bucket("b").Put("key", "in b"))

	var v string
	found, err := store.Bucket("a").Get("key", &v)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "in a", v)
}
