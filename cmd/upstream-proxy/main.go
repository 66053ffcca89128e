package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Nemo157/radicle-upstream/cmd/flags"
	"github.com/Nemo157/radicle-upstream/httpserver"
	"github.com/Nemo157/radicle-upstream/keystore"
	"github.com/Nemo157/radicle-upstream/kv"
	"github.com/Nemo157/radicle-upstream/metrics"
	"github.com/Nemo157/radicle-upstream/peer"
	"github.com/Nemo157/radicle-upstream/service"
	"github.com/Nemo157/radicle-upstream/session"
	"github.com/Nemo157/radicle-upstream/storage"
)

var appFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.DataDirFlag,
	flags.KeystoreURIFlag,
	flags.SeedDomainFlag,
	flags.TestModeFlag,
	flags.LogServiceFlagFn("upstream-proxy"),
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "upstream-proxy",
		Usage:  "Serve the upstream API, gated behind a passphrase-sealed service key",
		Flags:  appFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
	dataDir := cCtx.String(flags.DataDirFlag.Name)
	keystoreURI := cCtx.String(flags.KeystoreURIFlag.Name)
	seedDomains := cCtx.StringSlice(flags.SeedDomainFlag.Name)
	testMode := cCtx.Bool(flags.TestModeFlag.Name)

	logger := flags.SetupLogger(cCtx)

	store, err := kv.Open(filepath.Join(dataDir, "store"))
	if err != nil {
		logger.Error("Failed to open session store", "err", err)
		return err
	}

	// Test mode keeps the sealed key in memory; nothing survives a restart.
	var ks keystore.Keystore
	if testMode {
		logger.Info("Running in test mode with in-memory keystore")
		ks = keystore.Memory()
	} else {
		if keystoreURI == "" {
			keystoreURI = fmt.Sprintf("file://%s", filepath.Join(dataDir, "keystore.sealed"))
		}

		backend, err := storage.NewFactory(logger).BackendFor(keystoreURI)
		if err != nil {
			logger.Error("Failed to create keystore backend", "err", err, "uri", keystoreURI)
			return err
		}
		logger.Info("Keystore backend configured", "backend", backend.Name())

		ks = keystore.New(backend, logger)
	}

	manager := service.NewManager(testMode)
	sealed := session.NewSealed(store, testMode, manager.Handle(), session.NewTokenGuard(), ks)
	holder := session.NewHolder(sealed)

	handler := httpserver.NewHandler(holder, logger)
	cfg := flags.ConfigureServer(cCtx, logger, listenAddr)

	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Supervisor: waits for the service key to be installed, starts the
	// peer runtime, and promotes the session context. This is the single
	// place the sealed to unsealed transition becomes visible.
	go func() {
		env, err := manager.NextEnvironment(ctx)
		if err != nil {
			return
		}

		peerCfg := peer.Config{SeedDomains: seedDomains}
		p, err := peer.New(peerCfg, env.Key, store, logger)
		if err != nil {
			logger.Error("Failed to create peer", "err", err)
			return
		}

		go func() {
			if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Peer stopped unexpectedly", "err", err)
			}
		}()

		if holder.Promote(sealed.WithPeer(p.Control(), p.State())) {
			metrics.MarkUnsealed()
			logger.Info("Session unsealed", "peer_id", p.State().PeerID())
		}

		// Later key installs only rotate the configuration; the session
		// stays unsealed for the lifetime of the process.
		for {
			if _, err := manager.NextEnvironment(ctx); err != nil {
				return
			}
			logger.Info("Service configuration updated")
		}
	}()

	logger.Info("Starting server")
	server.RunInBackground()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}
