package main

//	@title						Studio RS TV API
//	@version					0.1.0
//	@description				Digital signage fleet management API.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	AdminKey
//	@in							header
//	@name						X-Admin-Key
//	@description				Shared administrator key. Exchange it at POST /api/v1/auth/token for a short-lived Bearer token.

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/studiorstv10-png/studio-rs-tv/api/swagger"
	"github.com/studiorstv10-png/studio-rs-tv/internal/auth"
	"github.com/studiorstv10-png/studio-rs-tv/internal/campaign"
	"github.com/studiorstv10-png/studio-rs-tv/internal/command"
	"github.com/studiorstv10-png/studio-rs-tv/internal/config"
	"github.com/studiorstv10-png/studio-rs-tv/internal/event"
	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/internal/liveness"
	"github.com/studiorstv10-png/studio-rs-tv/internal/media"
	"github.com/studiorstv10-png/studio-rs-tv/internal/pairing"
	"github.com/studiorstv10-png/studio-rs-tv/internal/player"
	"github.com/studiorstv10-png/studio-rs-tv/internal/registry"
	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
	"github.com/studiorstv10-png/studio-rs-tv/internal/store"
	"github.com/studiorstv10-png/studio-rs-tv/internal/version"
	"github.com/studiorstv10-png/studio-rs-tv/internal/ws"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "backup":
			runBackup(os.Args[2:])
			return
		case "restore":
			runRestore(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Studio RS TV server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Open database
	dbPath := viperCfg.GetString("database.path")
	if dbPath == "" {
		dbPath = "./data/studiotv.db"
	}
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CheckVersion(context.Background(), version.Version); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	// Create shared services
	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	// Register all modules (compile-time composition). Typed handles are kept
	// for cross-module wiring below.
	fleetMod := fleet.New()
	campaignMod := campaign.New()
	livenessMod := liveness.New()
	commandMod := command.New()
	pairingMod := pairing.New()
	playerMod := player.New()
	mediaMod := media.New()

	modules := []plugin.Plugin{
		fleetMod,
		campaignMod,
		livenessMod,
		commandMod,
		pairingMod,
		playerMod,
		mediaMod,
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register module", zap.Error(err))
		}
	}

	if err := reg.Validate(); err != nil {
		logger.Fatal("module validation failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		moduleCfg := cfg.Sub("modules." + name)
		return plugin.Dependencies{
			Config:  moduleCfg,
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize modules", zap.Error(err))
	}

	// Cross-module wiring. Collaborator interfaces are declared on the
	// consumer side; the concrete stores and services satisfy them here.
	campaignMod.SetTerminalPlaylists(fleetMod.Store())
	playerMod.SetTerminals(fleetMod.Store())
	playerMod.SetResolver(campaignMod.Resolver())
	playerMod.SetHeartbeatSink(livenessMod.Tracker())
	playerMod.SetCommandDrainer(commandMod.Store())

	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start modules", zap.Error(err))
	}

	// Create auth service
	jwtSecret := viperCfg.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Generate an ephemeral secret -- tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated JWT secret (set auth.jwt_secret in config to persist tokens across restarts)",
			zap.String("component", "auth"),
		)
	}

	tokenTTL := viperCfg.GetDuration("auth.token_ttl")
	if tokenTTL == 0 {
		tokenTTL = 15 * time.Minute
	}
	tokens := auth.NewTokenService([]byte(jwtSecret), tokenTTL)
	authService := auth.NewService(
		viperCfg.GetString("auth.admin_key"),
		viperCfg.GetString("auth.admin_key_hash"),
		tokens,
		logger.Named("auth"),
	)
	if viperCfg.GetString("auth.admin_key") == "" && viperCfg.GetString("auth.admin_key_hash") == "" {
		logger.Warn("no admin key configured, administrative endpoints will reject all requests",
			zap.String("component", "auth"),
		)
	}
	logger.Info("auth service initialized",
		zap.String("component", "auth"),
		zap.Duration("token_ttl", tokenTTL),
	)

	// WebSocket handler for real-time fleet events.
	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	// Create and start HTTP server
	addr := viperCfg.GetString("server.host") + ":" + fmt.Sprint(viperCfg.GetInt("server.port"))
	devMode := viperCfg.GetBool("server.dev_mode")
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	// mediaMod also serves the static /uploads/ tree on the root mux.
	srv := server.New(addr, reg, logger, readyCheck, authService, devMode, wsHandler, mediaMod)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("Studio RS TV server ready", zap.String("addr", addr))

	// Print human-readable banner for users watching docker logs.
	fmt.Fprintf(os.Stderr, "\n  Studio RS TV %s is ready!\n  Listening on http://%s\n\n", version.Short(), addr)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("Studio RS TV server stopped")
}
