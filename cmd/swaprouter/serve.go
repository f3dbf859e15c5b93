// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/luxfi/swaprouter/api"
	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/config"
	"github.com/luxfi/swaprouter/router"
	"github.com/luxfi/swaprouter/signer"
	"github.com/luxfi/swaprouter/token"
	"github.com/luxfi/swaprouter/upgrade"
)

var (
	routerPrefix     = []byte("router")
	governancePrefix = []byte("governance")
)

const (
	devTokensKey   = "dev-tokens"
	pruneInterval  = 30 * time.Second
	shutdownPeriod = 10 * time.Second
)

func serveCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs a router node with its JSON-RPC API",
		RunE:  serveFunc,
	}
	flags := c.Flags()
	config.AddFlags(flags)
	flags.StringSlice(devTokensKey, nil, "Token addresses backed by in-memory ledgers, for local networks")
	return c
}

// node is a fully wired router with its API.
type node struct {
	log         log.Logger
	router      *router.Router
	governor    *upgrade.Governor
	coordinator *signer.Coordinator
	handler     http.Handler
}

func newNode(cfg *config.Config, logger log.Logger, tokens token.Resolver, registry *prometheus.Registry) (*node, error) {
	n := &node{log: logger}

	db := memdb.New()
	host := router.NewLocalHost(cfg.ChainID)
	rcfg := router.Config{
		Address:     cfg.RouterAddress,
		Host:        host,
		DB:          prefixdb.New(routerPrefix, db),
		Tokens:      tokens,
		StrictHooks: cfg.StrictHooks,
		Log:         logger,
		Registerer:  registry,
		Hooks: []router.Hook{
			router.HookFunc(func(_ context.Context, r router.SettlementResult) error {
				logger.Debug("settlement observed",
					log.Stringer("requestID", r.RequestID),
					log.Uint64("srcChainID", r.Request.SrcChainID),
				)
				return nil
			}),
		},
	}

	if cfg.UpgradePublicKey != nil {
		scheme, err := bls.NewScheme(bls.Upgrade, cfg.ChainID)
		if err != nil {
			return nil, err
		}
		n.governor, err = upgrade.NewGovernor(upgrade.Config{
			Scheme:       scheme,
			PublicKey:    cfg.UpgradePublicKey,
			MinimumDelay: cfg.UpgradeMinDelay,
			DB:           prefixdb.New(governancePrefix, db),
			Now:          host.Timestamp,
			Log:          logger,
		})
		if err != nil {
			return nil, err
		}
		rcfg.Governor = n.governor
	}

	var err error
	n.router, err = router.New(rcfg, router.Genesis{
		Admin:                cfg.Admin,
		Settlers:             cfg.Settlers,
		VerificationFeeBps:   cfg.VerificationFeeBps,
		SwapRequestPublicKey: cfg.SwapPublicKey,
		PermittedChains:      cfg.PermittedChains,
	})
	if err != nil {
		return nil, err
	}
	if n.governor != nil {
		n.governor.SetApplier(n.router)
	}

	if len(cfg.SharePublicKeys) > 0 {
		scheme, err := n.router.SwapScheme()
		if err != nil {
			return nil, err
		}
		n.coordinator, err = signer.NewCoordinator(signer.Config{
			Scheme:          scheme,
			Threshold:       cfg.SignThreshold,
			PublicKey:       cfg.SwapPublicKey,
			SharePublicKeys: cfg.SharePublicKeys,
			SignTimeout:     cfg.SignTimeout,
			MaxPendingSigns: cfg.MaxPendingSigns,
			Log:             logger,
		})
		if err != nil {
			return nil, err
		}
	}

	rpcHandler, err := api.NewHandler(logger, n.router, n.coordinator)
	if err != nil {
		return nil, err
	}
	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(30 * time.Second))
	mux.Handle("/ext/swaprouter", rpcHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := n.router.VerificationFeeBps(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	n.handler = mux
	return n, nil
}

func devTokens(addrs []string) (*token.Registry, error) {
	tokens := token.NewRegistry()
	for _, s := range addrs {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid %s entry %q", devTokensKey, s)
		}
		if err := tokens.Register(common.HexToAddress(s), token.NewMemory(s)); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

func serveFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	addrs, err := flags.GetStringSlice(devTokensKey)
	if err != nil {
		return err
	}
	tokens, err := devTokens(addrs)
	if err != nil {
		return err
	}

	logger := log.NewLogger("swaprouter")
	n, err := newNode(cfg, logger, tokens, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	ctx := c.Context()
	if n.coordinator != nil {
		go n.coordinator.Run(ctx, pruneInterval)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           n.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	logger.Info("serving swap router",
		log.String("address", cfg.HTTPAddress),
		log.Uint64("chainID", cfg.ChainID),
		log.Stringer("router", cfg.RouterAddress),
	)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("swap router stopped")
	return nil
}
