package session

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nemo157/radicle-upstream/keystore"
	"github.com/Nemo157/radicle-upstream/peer"
)

func TestHolder_Promote(t *testing.T) {
	sealed, _ := newSealedContext(t)
	holder := NewHolder(sealed)

	_, ok := holder.Current().(*Sealed)
	require.True(t, ok)

	key, err := keystore.GenerateKey()
	require.NoError(t, err)

	p, err := peer.New(peer.Config{}, key, sealed.Store(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	unsealed := sealed.WithPeer(p.Control(), p.State())
	assert.True(t, holder.Promote(unsealed))

	got, ok := holder.Current().(*Unsealed)
	require.True(t, ok)
	assert.Equal(t, key.PeerID(), got.RepoState().PeerID())

	// Shared handles carry over across the transition.
	assert.Same(t, sealed.AuthToken(), got.AuthToken())
	assert.Same(t, sealed.Store(), got.Store())

	// Once unsealed the holder is final.
	assert.False(t, holder.Promote(unsealed))
}
