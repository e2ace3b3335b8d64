package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"party-lab/auth"
	"party-lab/domain"
	"party-lab/internal"
	"party-lab/platform"
	"party-lab/provision"
	"party-lab/ranking"
	"party-lab/runtime"
	"party-lab/runtime/workers"
	"party-lab/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the process lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Gateway & Party Engine
	gateway := platform.NewLoopback()
	store := runtime.NewPartyStore()
	gate := auth.NewRoleGate(gateway, config.VerifiedRole)
	provisioner := provision.NewProvisioner(gateway, log)
	engine := runtime.NewEngine(log, gateway, store, provisioner, gate, provision.NewPartyCard(), runtime.Settings{
		TriggerChannel: domain.ChannelID(config.TriggerChannelID),
		CardChannel:    domain.ChannelID(config.CardChannelID),
		NoticeChannel:  domain.ChannelID(config.NoticeChannelID),
		SetupTimeout:   config.SetupTimeout,
		SettleDelay:    config.SettleDelay,
		ThreadGrace:    config.ThreadGrace,
		NoticeTTL:      config.NoticeTTL,
		Policy:         domain.RosterPolicy(config.RosterPolicy),
		Variant:        runtime.FlowVariant(config.FlowVariant),
	})

	// 4. Member-facing Services
	nickname := services.NewNicknameService(log, gateway)
	roles := services.NewRoleService(log, gateway)
	onboarding := services.NewOnboardingService(
		log, gateway, nickname, roles,
		domain.ChannelID(config.WelcomeChannelID), config.VerifiedRole, config.OnboardingSteps,
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := nickname.InstallPanel(ctx, domain.ChannelID(config.WelcomeChannelID)); err != nil {
		return fmt.Errorf("nickname panel installation failed: %w", err)
	}
	if err := roles.InstallPanel(ctx, domain.ChannelID(config.WelcomeChannelID)); err != nil {
		return fmt.Errorf("role panel installation failed: %w", err)
	}

	// 6. Ranking Pipeline
	source := ranking.NewClient(config.RiotAccountBaseURL, config.RiotPlatformBaseURL, config.RiotAPIKey)
	repository := ranking.NewRepository(db, log)
	ladder := ranking.NewService(log, gateway, source, repository,
		domain.ChannelID(config.LadderChannelID), config.RankingMaxPerRun)

	// 7. Health Endpoint & Supervision
	internal.StartHealthServer(log, config.Port, store.Len, ladder)

	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewDispatcher(log, gateway, engine, nickname, roles, onboarding),
		workers.NewRankingUpdate(log, ladder, config.RankingInterval),
	)
	if config.ExternalURL != "" {
		sup.Add(workers.NewKeepalive(log, config.ExternalURL, config.KeepaliveInterval))
	}

	log.Info("Starting party engine", "trigger_channel", config.TriggerChannelID)
	sup.Run(ctx)
	log.Info("Program stopped cleanly")

	return nil
}
