package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/arisehq/arise/internal/auth"
	"github.com/arisehq/arise/internal/config"
	"github.com/arisehq/arise/internal/mcp"
	"github.com/arisehq/arise/internal/model"
	"github.com/arisehq/arise/internal/ratelimit"
	"github.com/arisehq/arise/internal/server"
	"github.com/arisehq/arise/internal/service/character"
	"github.com/arisehq/arise/internal/service/reconcile"
	"github.com/arisehq/arise/internal/service/rewards"
	"github.com/arisehq/arise/internal/service/territory"
	"github.com/arisehq/arise/internal/skills"
	"github.com/arisehq/arise/internal/storage"
	"github.com/arisehq/arise/internal/telemetry"
	"github.com/arisehq/arise/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

// demoUserID is the fixed id of the optional demo account so repeated
// startups don't accumulate copies.
var demoUserID = uuid.MustParse("00000000-0000-0000-0000-00000000d310")

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("ARISE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("arise starting", "version", version, "port", cfg.Port, "timezone", cfg.Timezone)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, cfg.NotifyURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close(ctx)

	// Run migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here indicate
	// real failures (not "already exists").
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// The shipped skill tree.
	graph := skills.Default()

	loc := cfg.Location()

	// Create services (shared by HTTP and MCP handlers).
	territorySvc := territory.New(db, logger)
	rewardSvc := rewards.New(db, graph, territorySvc, loc, rand.Float64, logger)
	reconcileSvc := reconcile.New(db, graph, loc, logger)
	characterSvc := character.New(db, graph, logger)

	// Create MCP server.
	mcpSrv := mcp.New(db, rewardSvc, reconcileSvc, characterSvc, logger)

	// Create SSE broker (requires LISTEN/NOTIFY connection).
	var broker *server.Broker
	if db.HasNotifyConn() {
		broker = server.NewBroker(db, logger, cfg.EventBufferSize)
		go broker.Start(ctx)
	} else {
		logger.Info("SSE broker: disabled (no notify connection)")
	}

	// Create rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = limiter.Close() }()
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	// Create HTTP server (MCP mounted at /mcp).
	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		RewardSvc:           rewardSvc,
		ReconcileSvc:        reconcileSvc,
		TerritorySvc:        territorySvc,
		CharacterSvc:        characterSvc,
		Logger:              logger,
		Limiter:             limiter,
		Broker:              broker,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		DefaultDailyGoal:    cfg.DefaultDailyGoal,
		DefaultPenaltyXP:    cfg.DefaultPenaltyXP,
	})

	// Seed the initial admin user.
	if err := srv.Handlers().SeedAdmin(ctx, cfg.AdminAPIKey); err != nil {
		slog.Warn("admin seed failed", "error", err)
	}

	// Seed a demo user for local evaluation.
	if cfg.SeedDemoUser {
		if err := seedDemoUser(ctx, db, cfg, logger); err != nil {
			slog.Warn("demo user seed failed", "error", err)
		}
	}

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting new HTTP requests and drain
	// in-flight ones. Reward writes are single transactions, so nothing
	// else needs flushing.
	slog.Info("arise shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("arise stopped")
	return nil
}

// seedDemoUser creates a regular user with a well-known key for local
// evaluation. Idempotent: the demo account has a fixed id.
func seedDemoUser(ctx context.Context, db *storage.DB, cfg config.Config, logger *slog.Logger) error {
	if _, err := db.GetUser(ctx, demoUserID); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	hash, err := auth.HashAPIKey("demo")
	if err != nil {
		return err
	}
	user := model.User{
		ID:         demoUserID,
		Name:       "Demo",
		Role:       model.RoleUser,
		APIKeyHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.CreateUser(ctx, user, cfg.DefaultDailyGoal, cfg.DefaultPenaltyXP); err != nil {
		return err
	}

	logger.Info("seeded demo user", "user_id", demoUserID, "api_key", "demo")
	return nil
}
