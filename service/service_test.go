package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nemo157/radicle-upstream/keystore"
)

func TestManager_InitialEnvironment(t *testing.T) {
	manager := NewManager(true)

	env := manager.Environment()
	assert.Nil(t, env.Key)
	assert.True(t, env.TestMode)
}

func TestManager_SetSecretKeyWakesSupervisor(t *testing.T) {
	manager := NewManager(false)
	key, err := keystore.GenerateKey()
	require.NoError(t, err)

	manager.Handle().SetSecretKey(key)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	env, err := manager.NextEnvironment(ctx)
	require.NoError(t, err)
	assert.Equal(t, key, env.Key)
}

func TestManager_UpdatesCoalesce(t *testing.T) {
	manager := NewManager(false)
	handle := manager.Handle()

	first, err := keystore.GenerateKey()
	require.NoError(t, err)
	second, err := keystore.GenerateKey()
	require.NoError(t, err)

	handle.SetSecretKey(first)
	handle.SetSecretKey(second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Two updates before the supervisor polls collapse into one wakeup
	// carrying the latest snapshot.
	env, err := manager.NextEnvironment(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, env.Key)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	_, err = manager.NextEnvironment(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_NextEnvironmentHonorsContext(t *testing.T) {
	manager := NewManager(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.NextEnvironment(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_Reset(t *testing.T) {
	manager := NewManager(false)
	handle := manager.Handle()

	key, err := keystore.GenerateKey()
	require.NoError(t, err)
	handle.SetSecretKey(key)
	handle.Reset()

	assert.Nil(t, manager.Environment().Key)
}

func TestManager_MultipleHandles(t *testing.T) {
	manager := NewManager(false)

	key, err := keystore.GenerateKey()
	require.NoError(t, err)

	// All handles feed the same manager.
	manager.Handle().SetSecretKey(key)
	other := manager.Handle()
	assert.Equal(t, key, other.manager.Environment().Key)
}
