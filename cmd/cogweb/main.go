// Command cogweb runs the cogweb core: an in-memory cognitive graph engine
// behind a synchronous HTTP command bridge.
//
// Every HTTP request is turned into a command, queued for the engine's
// workers and answered once the engine completes it or the request timeout
// expires. Atoms are persisted to SQLite; MQTT, WebSocket and InfluxDB are
// optional side channels.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cogweb/cogweb-core/internal/api"
	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/bridge"
	"github.com/cogweb/cogweb-core/internal/command"
	"github.com/cogweb/cogweb-core/internal/engine"
	"github.com/cogweb/cogweb-core/internal/infrastructure/config"
	"github.com/cogweb/cogweb-core/internal/infrastructure/database"
	"github.com/cogweb/cogweb-core/internal/infrastructure/influxdb"
	"github.com/cogweb/cogweb-core/internal/infrastructure/logging"
	"github.com/cogweb/cogweb-core/internal/infrastructure/mqtt"
	"github.com/cogweb/cogweb-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when neither --config nor COGWEB_CONFIG is set
	// and the file exists.
	defaultConfigPath = "configs/config.yaml"

	// configEnv names the environment variable holding the config path.
	configEnv = "COGWEB_CONFIG"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The root command runs the server.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cogweb",
		Short:         "Cognitive graph engine with an HTTP command bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Cancel on Ctrl+C and SIGTERM for graceful shutdown.
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, resolveConfigPath(configPath))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $"+configEnv+" or "+defaultConfigPath+" if present)")

	root.AddCommand(newVersionCmd(), newMigrateCmd(&configPath))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cogweb %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// resolveConfigPath picks the config file: the flag, then COGWEB_CONFIG,
// then the default path when it exists. "" means built-in defaults only.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown after ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting cogweb",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Best effort on exit
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	space := atomspace.New()
	space.SetLogger(log.With("component", "atomspace"))

	// Open database and load persisted atoms (optional)
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if loadErr := space.Load(ctx, atomspace.NewSQLiteRepository(db.DB)); loadErr != nil {
			return fmt.Errorf("loading atomspace: %w", loadErr)
		}
	} else {
		log.Info("database disabled, atomspace is memory only")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, log.With("component", "influxdb"))
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection", "write_errors", influxClient.WriteErrors())
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// The space belongs to the engine from here on.
	log.Info("atomspace ready", "atoms", space.Count())

	// The engine and the API server share one hub.
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))

	eng, err := startEngine(ctx, cfg, space, hub, mqttClient, log)
	if err != nil {
		return err
	}
	defer eng.Stop()

	bridgeOpts := bridge.Options{
		Timeout: cfg.GetRequestTimeout(),
		Logger:  log.With("component", "bridge"),
	}
	if influxClient != nil {
		bridgeOpts.Recorder = influxClient
	}
	b := bridge.New(eng, bridgeOpts)
	defer b.Close()

	if mqttClient != nil {
		ingress := api.NewIngress(mqttClient, eng.Registry(), b, byte(cfg.MQTT.QoS), log.With("component", "ingress"))
		if err := ingress.Start(); err != nil {
			return fmt.Errorf("starting MQTT ingress: %w", err)
		}
		// Runs before b.Close so in-flight requests are still answered.
		defer ingress.Stop()
	}

	srv, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.With("component", "api"),
		Registry:    eng.Registry(),
		Bridge:      b,
		Engine:      eng,
		MQTT:        mqttClient,
		DB:          db,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if influxClient != nil {
		g.Go(func() error {
			recordEngineStats(gctx, eng, b, influxClient, time.Duration(cfg.InfluxDB.FlushInterval)*time.Second)
			return nil
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", srv.Addr(),
	)

	<-gctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, bridge, engine,
	// InfluxDB, MQTT, database.
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("cogweb stopped")
	return nil
}

// openDatabase opens SQLite and applies the embedded migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Path)

	if err := db.Migrate(ctx, migrations.FS()); err != nil {
		db.Close() //nolint:errcheck // Error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")
	return db, nil
}

// startEngine registers the built-in operations and starts the workers.
// Atom events go to the WebSocket hub and, when connected, to MQTT.
func startEngine(ctx context.Context, cfg *config.Config, space *atomspace.AtomSpace, hub *api.Hub, mqttClient *mqtt.Client, log *logging.Logger) (*engine.Engine, error) {
	opts := engine.Options{
		Workers: cfg.Engine.Workers,
		Hub:     hub,
		Logger:  log.With("component", "engine"),
	}
	if mqttClient != nil {
		opts.MQTT = mqttClient
		opts.AtomTopic = mqttClient.Topics().AtomCreated
		opts.QoS = byte(cfg.MQTT.QoS)
	}

	eng := engine.New(space, command.NewRegistry(), opts)
	if err := eng.RegisterBuiltins(); err != nil {
		return nil, fmt.Errorf("registering operations: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting engine: %w", err)
	}
	return eng, nil
}

// recordEngineStats writes engine and runtime snapshots to InfluxDB every
// interval until ctx is cancelled. The atom count is read through the bridge; when the
// engine does not answer in time the field is left out of that sample.
func recordEngineStats(ctx context.Context, eng *engine.Engine, b *bridge.Bridge, influx *influxdb.Client, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			influx.WriteEngineStats(engineSnapshot(eng, b))
			influx.WriteRuntime(runtimeSnapshot(), now)
		}
	}
}

// engineSnapshot combines the engine's own counters with the atom count
// returned by the stats operation.
func engineSnapshot(eng *engine.Engine, b *bridge.Bridge) influxdb.EngineSnapshot {
	s := eng.Stats()
	snap := influxdb.EngineSnapshot{
		QueueDepth: s.QueueDepth,
		Executed:   s.Executed,
		Failed:     s.Failed,
		Discarded:  s.Discarded,
		Atoms:      -1,
	}
	outcome, err := b.Call(eng.Registry(), engine.OpStats, nil)
	if err == nil && outcome.OK() {
		if st, ok := outcome.Payload.(atomspace.Stats); ok {
			snap.Atoms = st.Total
		}
	}
	return snap
}

func runtimeSnapshot() influxdb.RuntimeSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return influxdb.RuntimeSnapshot{
		Goroutines: runtime.NumGoroutine(),
		HeapMB:     float64(m.HeapAlloc) / (1 << 20),
		NumGC:      m.NumGC,
	}
}

// healthCheck verifies the enabled infrastructure connections.
// Nil components are disabled and skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
