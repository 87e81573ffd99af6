// authgate - session authentication and request gating service
//
// authgate registers and signs in accounts, issues signed session tokens,
// records sessions in Redis for revocation, and gates the /dashboard and
// /admin areas by role. Auth events fan out to the local WebSocket hub,
// the SQLite audit log and, when enabled, MQTT and InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/nerrad567/authgate/internal/api"
	"github.com/nerrad567/authgate/internal/audit"
	"github.com/nerrad567/authgate/internal/auth"
	"github.com/nerrad567/authgate/internal/events"
	"github.com/nerrad567/authgate/internal/infrastructure/config"
	"github.com/nerrad567/authgate/internal/infrastructure/database"
	"github.com/nerrad567/authgate/internal/infrastructure/influxdb"
	"github.com/nerrad567/authgate/internal/infrastructure/logging"
	"github.com/nerrad567/authgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/authgate/internal/infrastructure/redis"
	"github.com/nerrad567/authgate/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear startup sequence with one defer per dependency
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting authgate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	users := auth.NewUserRepository(db.DB)
	if cfg.Security.SeedAdmin.Email != "" {
		if _, seedErr := auth.SeedAdmin(ctx, users, auth.SeedAdminInput{
			Email:    cfg.Security.SeedAdmin.Email,
			Password: cfg.Security.SeedAdmin.Password,
			Cost:     cfg.Security.Password.Cost,
		}, log.With("component", "seed").Logger); seedErr != nil {
			return fmt.Errorf("seeding admin: %w", seedErr)
		}
	}

	// Connect to Redis (session registry)
	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection")
		if closeErr := redisClient.Close(); closeErr != nil {
			log.Error("error closing Redis", "error", closeErr)
		}
	}()
	log.Info("Redis connected", "addr", cfg.Redis.Addr)

	registry, err := auth.NewRegistry(redisClient.Universal(),
		auth.WithSessionTTL(max(auth.DefaultSessionTTL, cfg.TokenTTL())))
	if err != nil {
		return fmt.Errorf("creating session registry: %w", err)
	}

	signer, err := auth.NewSigner([]byte(cfg.Security.JWT.Secret), auth.WithTokenTTL(cfg.TokenTTL()))
	if err != nil {
		return fmt.Errorf("creating token signer: %w", err)
	}

	// WebSocket hub: closes sockets of revoked sessions
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	sinks := events.Fanout{hub}
	health := map[string]api.HealthChecker{
		"database": db,
		"redis":    redisClient,
	}

	auditSink := events.Async("audit",
		events.NewAuditSink(audit.NewSQLiteRepository(db.DB), log.With("component", "audit").Logger),
		events.DefaultQueueSize, log.Logger)
	defer auditSink.Close()
	sinks = append(sinks, auditSink)

	// Connect to MQTT (optional): cross-instance revocation fan-out
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		origin := uuid.NewString()
		busLog := log.With("component", "bus").Logger
		busSink := events.Async("mqtt",
			events.NewBusSink(mqttClient, mqttClient.Topics(), origin, busLog),
			events.DefaultQueueSize, log.Logger)
		defer busSink.Close()
		sinks = append(sinks, busSink)

		relay := events.NewRelay(mqttClient.Topics(), origin, hub, busLog)
		if relayErr := relay.Start(mqttClient, byte(cfg.MQTT.QoS)); relayErr != nil { //nolint:gosec // QoS validated in config
			return fmt.Errorf("starting event relay: %w", relayErr)
		}
		defer func() {
			if stopErr := relay.Stop(mqttClient); stopErr != nil {
				log.Warn("error stopping event relay", "error", stopErr)
			}
		}()
		health["mqtt"] = mqttClient
		log.Info("auth event relay started", "origin", origin)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional): auth event counters
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		metricsSink := events.Async("influxdb", events.NewMetricsSink(influxClient),
			events.DefaultQueueSize, log.Logger)
		defer metricsSink.Close()
		sinks = append(sinks, metricsSink)
		health["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorDeps{
		Users:    users,
		Signer:   signer,
		Registry: registry,
		Events:   sinks,
		Logger:   log.With("component", "auth").Logger,
	}, auth.AuthenticatorConfig{
		PasswordCost:         cfg.Security.Password.Cost,
		MaxConcurrentHashes:  cfg.Security.Password.MaxConcurrent,
		RegistryWriteTimeout: cfg.RegistryWriteTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}
	// Pending session records must land before Redis closes.
	defer authenticator.Wait()

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.With("component", "api"),
		Auth:     authenticator,
		Signer:   signer,
		Sessions: registry,
		Hub:      hub,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", server.Addr(),
		"strict_revocation", cfg.Security.Revocation.Strict,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, pending session
	// records, event sinks, InfluxDB, MQTT, hub, Redis, database.

	log.Info("authgate stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AUTHGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUTHGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every dependency check and returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, checker := range checks {
		if err := checker.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
