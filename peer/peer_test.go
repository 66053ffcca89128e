package peer

import (
	"log/slog"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nemo157/radicle-upstream/keystore"
	"github.com/Nemo157/radicle-upstream/kv"
)

func TestNew(t *testing.T) {
	key, err := keystore.GenerateKey()
	require.NoError(t, err)

	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)

	p, err := New(Config{}, key, store, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, StatusStopped, p.Control().Status())
	assert.Equal(t, 0, p.Control().SeedCount())
	assert.Equal(t, key.PeerID(), p.State().PeerID())
	assert.Same(t, store, p.State().Store())
}

func TestNew_RequiresKey(t *testing.T) {
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)

	_, err = New(Config{}, nil, store, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestResolveSeeds_NoDomains(t *testing.T) {
	seeds, err := ResolveSeeds(nil, "127.0.0.53:53")
	require.NoError(t, err)
	assert.Empty(t, seeds)
}

func TestResolveSeeds_SRV(t *testing.T) {
	resolver := startSeedDNS(t, map[string][]*dns.SRV{
		"seed.radicle.xyz.": {
			{Priority: 10, Weight: 5, Port: 8776, Target: "maple.radicle.xyz."},
			{Priority: 20, Weight: 5, Port: 8776, Target: "willow.radicle.xyz."},
		},
	})

	seeds, err := ResolveSeeds([]string{"seed.radicle.xyz"}, resolver)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"maple.radicle.xyz.:8776", "willow.radicle.xyz.:8776"}, seeds)
}

func TestResolveSeeds_SkipsFailedDomains(t *testing.T) {
	resolver := startSeedDNS(t, map[string][]*dns.SRV{
		"seed.radicle.xyz.": {
			{Priority: 10, Weight: 5, Port: 8776, Target: "maple.radicle.xyz."},
		},
	})

	// The unknown domain yields an empty answer, not a resolution error.
	seeds, err := ResolveSeeds([]string{"unknown.example.com", "seed.radicle.xyz"}, resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"maple.radicle.xyz.:8776"}, seeds)
}

// startSeedDNS runs a throwaway DNS server answering SRV queries from the
// given zone and returns its address.
func startSeedDNS(t *testing.T, zone map[string][]*dns.SRV) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{
		PacketConn: pc,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			for _, srv := range zone[r.Question[0].Name] {
				rr := *srv
				rr.Hdr = dns.RR_Header{
					Name:   r.Question[0].Name,
					Rrtype: dns.TypeSRV,
					Class:  dns.ClassINET,
					Ttl:    60,
				}
				m.Answer = append(m.Answer, &rr)
			}
			w.WriteMsg(m) //nolint:errcheck
		}),
	}

	go server.ActivateAndServe() //nolint:errcheck
	t.Cleanup(func() { server.Shutdown() }) //nolint:errcheck

	return pc.LocalAddr().String()
}
