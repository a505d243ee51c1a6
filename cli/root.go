// Package cli wires the service together and runs it: configuration
// loading, store and bus selection, route registration and graceful
// shutdown.
package cli

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tasteos.dev/ai"
	"tasteos.dev/api"
	"tasteos.dev/common"
	"tasteos.dev/config"
	"tasteos.dev/cook"
	"tasteos.dev/db"
	"tasteos.dev/db/repository"
	httpserver "tasteos.dev/http"
	"tasteos.dev/idempotency"
	"tasteos.dev/queue"
	"tasteos.dev/units"
	"tasteos.dev/version"
)

var cfgFile string

// RootCmd runs the cook session engine API server.
var RootCmd = &cobra.Command{
	Use:   "tasteos-cook",
	Short: "TasteOS cook session engine",
	Long: `Runs the TasteOS cook session engine: cook session lifecycle,
step checklists, timers, AI-assisted adjustments, method switching,
unit conversion and the realtime session update stream.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := json.MarshalIndent(version.Get(), "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml)")
	RootCmd.PersistentFlags().Int("port", 0, "server port (overrides config)")
	RootCmd.PersistentFlags().String("postgres-url", "", "Postgres connection URL (overrides config)")
	RootCmd.PersistentFlags().String("redis-url", "", "Redis connection URL (overrides config)")
	RootCmd.PersistentFlags().String("amqp-url", "", "AMQP broker URL for the notification mirror (overrides config)")
	RootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("TASTEOS", cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	common.ConfigureLogger(cfg.Logging.Level, cfg.Logging.Format)
	log := common.Logger.WithField("service", cfg.Service.Name)

	// Persistence.
	gdb, err := db.NewPostgres(db.PostgresOptions{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		AutoMigrate:     cfg.Database.AutoMigrate,
	})
	if err != nil {
		return err
	}
	sessions := db.NewSessionStore(gdb, cfg.Cook.MutationRetries)
	events := db.NewEventStore(gdb)
	recipes := db.NewRecipeStore(gdb)
	densities := db.NewDensityStore(gdb)

	// KV and pub/sub: Redis when configured, otherwise the embedded
	// bolt store plus an in-process bus (single-node mode).
	var kv repository.KV
	var rawBus repository.Bus
	if cfg.Redis.URL != "" {
		redisRepo, err := repository.NewRedisRepository(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisRepo.Close()
		kv = redisRepo
		rawBus = redisRepo
		log.Info("using redis for idempotency and session bus")
	} else {
		boltKV, err := repository.OpenBolt(cfg.Redis.BoltPath)
		if err != nil {
			return err
		}
		defer boltKV.Close()
		kv = boltKV
		rawBus = repository.NewMemoryRepository()
		log.Info("using embedded bolt store and in-process session bus")
	}

	var bus cook.Bus = cook.NewBus(rawBus)
	if cfg.AMQP.URL != "" {
		notifier, err := queue.NewNotifier(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return err
		}
		defer notifier.Close()
		bus = queue.NewMirrorBus(bus, notifier)
		log.WithField("queue", cfg.AMQP.Queue).Info("amqp notification mirror enabled")
	}

	gate := idempotency.NewGate(kv, cfg.Cook.ProcessingTTL, cfg.Cook.DoneTTL)

	cookSvc := cook.NewService(sessions, recipes, events, bus, ai.NewHeuristic(), cook.Options{
		ManualOverrideWindow: cfg.Cook.ManualOverrideWindow,
		EventWindow:          cfg.Cook.EventWindow,
		RecentLimit:          cfg.Cook.RecentLimit,
	})
	cookHandlers := cook.NewHandlers(cookSvc, cfg.Cook.KeepAliveInterval, cfg.Cook.DoneGrace)
	unitHandlers := units.NewHandlers(units.NewResolver(densities), densities)

	// HTTP surface.
	serverCfg := httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Debug:           cfg.Server.Debug,
		BodyLimit:       cfg.Server.BodyLimit,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    0, // SSE connections outlive any fixed write deadline
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.Security.AllowedOrigins,
		RateLimit:       cfg.Security.RateLimit,
	}
	e := httpserver.NewEchoServer(serverCfg)
	serviceVersion := cfg.Service.Version
	if serviceVersion == "" {
		serviceVersion = version.Get().Version
	}
	e.GET("/healthz", httpserver.HealthCheckHandler(cfg.Service.Name, serviceVersion))

	root := e.Group("/api", api.RequireWorkspace())
	cookHandlers.RegisterRoutes(root, gate.Middleware)
	unitHandlers.RegisterRoutes(root, gate.Middleware)

	// Serve until interrupted.
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpserver.StartServer(e, serverCfg)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	return httpserver.GracefulShutdown(e, cfg.Server.ShutdownTimeout)
}

// applyFlagOverrides lets explicit flags win over file and environment
// configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if port, err := cmd.Flags().GetInt("port"); err == nil && port > 0 {
		cfg.Server.Port = port
	}
	if url, err := cmd.Flags().GetString("postgres-url"); err == nil && url != "" {
		cfg.Database.URL = url
	}
	if url, err := cmd.Flags().GetString("redis-url"); err == nil && url != "" {
		cfg.Redis.URL = url
	}
	if url, err := cmd.Flags().GetString("amqp-url"); err == nil && url != "" {
		cfg.AMQP.URL = url
	}
}
