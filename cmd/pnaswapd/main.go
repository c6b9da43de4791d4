// Package main provides the pnaswapd client daemon - a trustless
// cross-chain swap coordinator.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AdonisPhusis/PNA-SWAP/internal/config"
	"github.com/AdonisPhusis/PNA-SWAP/internal/explorer"
	"github.com/AdonisPhusis/PNA-SWAP/internal/quote"
	"github.com/AdonisPhusis/PNA-SWAP/internal/realtime"
	"github.com/AdonisPhusis/PNA-SWAP/internal/registry"
	"github.com/AdonisPhusis/PNA-SWAP/internal/session"
	"github.com/AdonisPhusis/PNA-SWAP/internal/storage"
	"github.com/AdonisPhusis/PNA-SWAP/internal/swap"
	"github.com/AdonisPhusis/PNA-SWAP/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// Parse flags
	var (
		dataDir     = flag.String("data-dir", "~/.pna-swap", "Data directory")
		registryURL = flag.String("registry", "", "LP registry URL, overrides config")
		allTiers    = flag.Bool("all-tiers", false, "Route through community LPs as well as operator LPs")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")

		fromAsset = flag.String("from", "", "Asset to swap from (BTC, USDC)")
		toAsset   = flag.String("to", "", "Asset to swap to")
		amount    = flag.Float64("amount", 0, "Amount to swap, in the from-asset unit")
		dest      = flag.String("dest", "", "Destination address on the to-asset chain")
		recent    = flag.Int("recent", 0, "Print the N most recent swaps across LPs and exit")
		watch     = flag.Bool("watch", false, "Keep printing indicative rates on the configured refresh interval")
		yes       = flag.Bool("yes", false, "Proceed past flagged lock verification without prompting")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("pnaswapd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}
	if *registryURL != "" {
		cfg.Registry.URL = *registryURL
	}
	if *allTiers {
		cfg.Registry.ShowAllTiers = true
	}
	cfg.Logging.Level = *logLevel

	// Update logging with config level
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataPath := config.ExpandPath(cfg.Storage.DataDir)
	store, err := storage.New(dataPath)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "path", dataPath)

	// Discover LPs: an HTTP snapshot first, then the registry's
	// realtime channel keeps the set current.
	lps := registry.NewSet(cfg.Registry.ShowAllTiers)
	regClient := registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout)
	entries, err := regClient.Online(ctx)
	if err != nil {
		log.Warn("Registry snapshot failed, waiting for the realtime feed", "error", err)
	} else {
		lps.Replace(entries)
		log.Info("LPs discovered", "online", len(entries), "routable", lps.Len())
	}

	regConn := realtime.Dial(realtime.EndpointURL(cfg.Registry.URL), func(ev realtime.Event) {
		switch e := ev.(type) {
		case realtime.RegistrySnapshotEvent:
			lps.Replace(e.LPs)
		case realtime.RegistryUpdateEvent:
			lps.Upsert(e.Entry)
		}
	})
	regConn.Subscribe("registry", nil)
	defer regConn.Close()

	engine := quote.NewEngine(lps.Endpoints, cfg.Quotes.LPTimeout)

	if *recent > 0 {
		printRecent(ctx, log, lps.Endpoints, cfg.Quotes.LPTimeout, *recent)
		return
	}

	// The swap's realtime channel is dialed once a swap is live; until
	// then HTTP polling is the only (and unused) delivery path.
	var swapConn *realtime.Conn
	defer func() {
		if swapConn != nil {
			swapConn.Close()
		}
	}()

	coordinator := swap.NewCoordinator(swap.Config{
		Sessions:       session.NewStore(dataPath, cfg.Swap.SessionExpiry),
		History:        store,
		Engine:         engine,
		LPTimeout:      cfg.Quotes.LPTimeout,
		PollInterval:   cfg.Swap.PollInterval,
		NotifyAttempts: cfg.Swap.NotifyAttempts,
		Gate:           verificationGate(log, *yes),
		PushConnected: func(string) bool {
			return swapConn != nil && swapConn.Connected()
		},
		OnUpdate: func(s swap.Swap) {
			log.Info("Swap update", "swap_id", s.SwapID, "state", s.State)
		},
	})
	defer coordinator.Close()

	printBanner(log, cfg)

	resumed, err := coordinator.Resume(ctx)
	if err != nil {
		log.Fatal("Failed to resume swap", "error", err)
	}
	if resumed {
		log.Info("Resumed interrupted swap", "swap_id", coordinator.Active().SwapID)
	}

	if !resumed {
		if *fromAsset == "" || *toAsset == "" || *dest == "" {
			if *watch {
				watchRates(ctx, log, engine, cfg.Quotes.RefreshInterval)
				return
			}
			printRates(ctx, log, engine)
			log.Info("No swap requested; use -from, -to, -amount and -dest")
			return
		}
		sw, err := coordinator.StartSwap(ctx, strings.ToUpper(*fromAsset), strings.ToUpper(*toAsset), *amount, *dest)
		if err != nil {
			log.Fatal("Failed to start swap", "error", err)
		}
		log.Info("Swap started",
			"swap_id", sw.SwapID, "from", sw.FromAsset, "to", sw.ToAsset,
			"receive", sw.ToAmount, "lp", sw.LPInName)
		if sw.RouteDowngraded {
			log.Warn("Per-leg pricing was available but not executable for this direction; swapping through a single LP")
		}
		if sw.DepositAddress != "" {
			log.Info("Send your deposit", "address", sw.DepositAddress, "amount_sats", sw.DepositAmountSats)
		}
	}

	// Push channel for the active swap; polling covers any gap.
	active := coordinator.Active()
	swapConn = realtime.Dial(realtime.EndpointURL(active.LPInEndpoint), func(ev realtime.Event) {
		if e, ok := ev.(realtime.SwapUpdateEvent); ok {
			coordinator.HandleStatus(ctx, &e.Status)
		}
	})
	swapConn.Subscribe("swap", map[string]string{"swap_id": active.SwapID})

	// Wait for settlement or interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-coordinator.Done():
		final := coordinator.Active()
		if final.State == swap.StateCompleted {
			log.Info("Swap completed", "swap_id", final.SwapID, "delivered", final.DeliveryAmount, "to", final.DestAddress)
		} else {
			log.Error("Swap did not complete", "swap_id", final.SwapID, "state", final.State, "error", final.Error)
		}
	case <-sigCh:
		log.Info("Shutting down; the swap resumes from the saved session on restart")
	}

	cancel()
}

// verificationGate prompts on flagged locks. A clean verification never
// prompts; -yes overrides the prompt for unattended runs.
func verificationGate(log *logging.Logger, autoYes bool) func(*swap.Verification) bool {
	return func(v *swap.Verification) bool {
		if v.OK() {
			return true
		}
		log.Warn("Counterparty lock verification raised warnings:")
		for _, w := range v.Warnings {
			log.Warnf("  - %s", w)
		}
		if autoYes {
			log.Warn("Proceeding anyway (-yes)")
			return true
		}
		fmt.Fprint(os.Stderr, "Disclose the swap secret anyway? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

// printRates shows indicative rates from small probe quotes.
func printRates(ctx context.Context, log *logging.Logger, engine *quote.Engine) {
	for _, pair := range [][2]string{{"BTC", "USDC"}, {"USDC", "BTC"}} {
		route, err := engine.ReferenceRate(ctx, pair[0], pair[1])
		if err != nil {
			log.Debug("Reference rate unavailable", "pair", pair[0]+"/"+pair[1], "error", err)
			continue
		}
		log.Infof("  %s -> %s  rate %g  via %s", pair[0], pair[1], route.Quote.Rate, route.Quote.LPName)
	}
}

// watchRates keeps re-pricing the main pair until interrupted.
func watchRates(ctx context.Context, log *logging.Logger, engine *quote.Engine, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log.Info("Watching rates; Ctrl-C to stop", "interval", interval)
	engine.WatchRate(ctx, "BTC", "USDC", interval, func(route *quote.Route) {
		log.Infof("  BTC -> USDC  rate %g  via %s", route.Quote.Rate, route.Quote.LPName)
	})
}

func printRecent(ctx context.Context, log *logging.Logger, endpoints func() []string, timeout time.Duration, limit int) {
	ex := explorer.New(endpoints, timeout)
	swaps := ex.Recent(ctx, limit)
	if len(swaps) == 0 {
		log.Info("No recent swaps reported by any LP")
		return
	}
	for _, s := range swaps {
		log.Infof("  %s  %s -> %s  %g -> %g  [%s]",
			s.SwapID, s.FromAsset, s.ToAsset, s.FromAmount, s.ToAmount, s.Status)
	}
}

func printBanner(log *logging.Logger, cfg *config.Config) {
	log.Info("")
	log.Info("=================================================")
	log.Infof("  PNA Swap Client")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Registry: %s", cfg.Registry.URL)
	log.Infof("  Data dir: %s", config.ExpandPath(cfg.Storage.DataDir))
	log.Info("")
}
