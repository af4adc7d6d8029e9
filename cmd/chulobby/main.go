// ChuLobby - Dreamcast lobby and login server
//
// ChuLobby speaks the original console wire protocol: the login server
// handles device registration and account checks, then redirects consoles
// to the lobby server for rooms, chat, rankings and puzzle sharing. A REST
// API, Discord webhooks and MQTT telemetry cover the operator side.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/api"
	"github.com/chulobby-project/chulobby/internal/cli"
	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/connector"
	"github.com/chulobby-project/chulobby/internal/db"
	"github.com/chulobby-project/chulobby/internal/events"
	"github.com/chulobby-project/chulobby/internal/lobby"
	"github.com/chulobby-project/chulobby/internal/network"
	"github.com/chulobby-project/chulobby/internal/scheduler"
	"github.com/chulobby-project/chulobby/internal/telemetry"
	"github.com/chulobby-project/chulobby/internal/util"
)

const (
	AppName    = "ChuLobby"
	AppVersion = "1.0.0"
	Banner     = `
   _____ _           _           _     _
  / ____| |         | |         | |   | |
 | |    | |__  _   _| |     ___ | |__ | |__  _   _
 | |    | '_ \| | | | |    / _ \| '_ \| '_ \| | | |
 | |____| | | | |_| | |___| (_) | |_) | |_) | |_| |
  \_____|_| |_|\__,_|______\___/|_.__/|_.__/ \__, |
                                              __/ |
                                             |___/  v%s
 Dreamcast Lobby & Login Server
`
)

func main() {
	// Print banner
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (will be reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting ChuLobby")

	// Load configuration
	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Re-initialize logger with config-based settings
	logCfg := util.LogConfig{
		Level:     cfg.ApplicationData.Logging.Level,
		Directory: cfg.ApplicationData.Logging.Directory,
		Console:   true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	// Validate configuration
	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}

		if cfg.IsFirstRun() {
			log.Info().Msg("first run detected, launching setup wizard")
			if err := config.RunSetupWizard(cfg); err != nil {
				log.Fatal().Err(err).Msg("setup wizard failed")
			}
		} else {
			log.Fatal().Msg("configuration validation failed, please fix the errors above")
		}
	}

	// Log system info
	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sd := cfg.GetServerData()

	// Open the database
	store, err := db.NewGameStore(sd.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", sd.DatabasePath).Msg("failed to open database")
	}
	defer store.Close()

	// Build the in-memory lobby and load what persists across restarts
	state := lobby.NewState(lobby.Caps{
		MaxClients:   sd.MaxClients,
		MaxRooms:     sd.MaxRooms,
		MaxPuzzles:   sd.MaxPuzzles,
		SeatsPerRoom: sd.SeatsPerRoom,
	})
	state.SeedStaticRooms(sd.Deedee)

	puzzles, err := store.Puzzles()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load puzzle catalog")
	}
	state.LoadPuzzles(puzzles)
	log.Info().Int("puzzles", len(puzzles)).Bool("deedee", sd.Deedee).Msg("lobby initialized")

	// Initialize core components
	eventBus := events.NewEventBus()

	dispatcher := lobby.NewDispatcher(state, store, eventBus, lobby.Options{
		Deedee:   sd.Deedee,
		InfoPath: sd.InfoFile,
	})

	// Outbound integrations
	connector.NewDiscordConnector(cfg, eventBus)

	var mqttHandler *telemetry.MQTTHandler
	if cfg.GetApplicationData().MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	// Game-facing servers
	loginServer := network.NewLoginServer(cfg, store)
	lobbyServer := network.NewLobbyServer(cfg, dispatcher)

	// Operator surfaces
	apiServer := api.NewServer(cfg, state, store)
	sched := scheduler.NewScheduler(cfg, state)
	cliHandler := cli.NewCLI(cfg, eventBus, state, store)

	// ---------------------------------------------------------------
	// Launch all concurrent tasks
	// ---------------------------------------------------------------
	var wg sync.WaitGroup
	errCh := make(chan error, 10)

	// Task 1: Login server (consoles authenticate here first)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("port", sd.LoginPort).Msg("starting login server")
		if err := loginServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("login server: %w", err)
		}
	}()

	// Task 2: Lobby server (consoles are redirected here after login)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("port", sd.LobbyPort).Msg("starting lobby server")
		if err := lobbyServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("lobby server: %w", err)
		}
	}()

	// Task 3: REST API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("port", cfg.GetApplicationData().APIPort).Msg("starting REST API server")
		if err := apiServer.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("API server failed (non-fatal)")
		}
	}()

	// Task 4: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 5: Scheduler (room reaping, stats)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting task scheduler")
		sched.Start(ctx)
	}()

	// Task 6: Interactive CLI
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting interactive CLI")
		cliHandler.Start(ctx)
	}()

	// Shutdown requests from the CLI arrive through the event bus.
	shutdownCh := make(chan struct{}, 1)
	eventBus.Subscribe(events.EventShutdown, "main.shutdown", func(ctx context.Context, e events.Event) error {
		if e.Source != "main" {
			select {
			case shutdownCh <- struct{}{}:
			default:
			}
		}
		return nil
	})

	// ---------------------------------------------------------------
	// Graceful shutdown handling
	// ---------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested from CLI")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")

	// Cancel the root context to signal all goroutines
	cancel()

	// Emit shutdown event
	eventBus.Emit(context.Background(), events.Event{
		Type:   events.EventShutdown,
		Source: "main",
	})

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	// Stop the event bus last
	eventBus.Stop()

	log.Info().Msg("ChuLobby stopped")
}
