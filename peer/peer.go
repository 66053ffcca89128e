// Package peer runs the repository peer that becomes available once the
// service key is unsealed. The rest of the proxy only holds the Control
// and State handles; the peer's own replication protocol lives behind
// them and is not driven from here.
package peer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/Nemo157/radicle-upstream/keystore"
	"github.com/Nemo157/radicle-upstream/kv"
)

// Config carries the peer runtime configuration.
type Config struct {
	// SeedDomains are DNS names resolved to seed instances via SRV lookup.
	SeedDomains []string

	// Resolver is the DNS server used for seed resolution.
	// Defaults to the local stub resolver.
	Resolver string

	// AnnounceInterval is the period between seed refresh and announce
	// rounds. Defaults to 30 seconds.
	AnnounceInterval time.Duration
}

// Peer is the running repository peer.
type Peer struct {
	cfg     Config
	key     keystore.SecretKey
	control *Control
	state   *State
	log     *slog.Logger
}

// New creates a peer bound to the unsealed service key. The peer does
// not touch the network until Run is called.
func New(cfg Config, key keystore.SecretKey, store *kv.Store, log *slog.Logger) (*Peer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("peer requires an unsealed service key")
	}
	if cfg.Resolver == "" {
		cfg.Resolver = "127.0.0.53:53"
	}
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = 30 * time.Second
	}

	control := &Control{
		status:    atomic.NewString(StatusStopped),
		seedCount: atomic.NewInt64(0),
	}

	return &Peer{
		cfg:     cfg,
		key:     key,
		control: control,
		state:   &State{peerID: key.PeerID(), store: store},
		log:     log,
	}, nil
}

// Control returns the handle to inspect the running peer.
func (p *Peer) Control() *Control {
	return p.control
}

// State returns the repository state handle.
func (p *Peer) State() *State {
	return p.state
}

// Run drives the peer's announce loop until ctx is cancelled. Seed
// domains are re-resolved every round so DNS changes propagate without a
// restart.
func (p *Peer) Run(ctx context.Context) error {
	p.control.status.Store(StatusStarted)
	defer p.control.status.Store(StatusStopped)

	p.log.Info("Peer started",
		slog.String("peer_id", p.state.PeerID()),
		slog.Int("seed_domains", len(p.cfg.SeedDomains)))

	ticker := time.NewTicker(p.cfg.AnnounceInterval)
	defer ticker.Stop()

	p.refreshSeeds()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Peer stopped")
			return ctx.Err()
		case <-ticker.C:
			p.refreshSeeds()
		}
	}
}

func (p *Peer) refreshSeeds() {
	seeds, err := ResolveSeeds(p.cfg.SeedDomains, p.cfg.Resolver)
	if err != nil {
		p.log.Warn("Seed resolution failed", "err", err)
		p.control.status.Store(StatusOffline)
		return
	}

	p.control.seedCount.Store(int64(len(seeds)))
	if len(seeds) == 0 {
		p.control.status.Store(StatusOffline)
	} else {
		p.control.status.Store(StatusOnline)
	}
}

// Peer status values reported by Control.Status.
const (
	StatusStopped = "stopped"
	StatusStarted = "started"
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Control inspects the running peer. It is safe for concurrent use.
type Control struct {
	status    *atomic.String
	seedCount *atomic.Int64
}

// Status returns the current peer status.
func (c *Control) Status() string {
	return c.status.Load()
}

// SeedCount returns the number of seed instances resolved in the last
// announce round.
func (c *Control) SeedCount() int {
	return int(c.seedCount.Load())
}

// State operates on the local repository storage on behalf of the peer.
type State struct {
	peerID string
	store  *kv.Store
}

// PeerID returns the identity of this peer, derived from the service key.
func (s *State) PeerID() string {
	return s.peerID
}

// Store returns the persistent store backing the repository state.
func (s *State) Store() *kv.Store {
	return s.store
}
