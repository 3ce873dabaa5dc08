package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carehospital/portal/internal/config"
	"github.com/carehospital/portal/internal/domain/catalog"
	"github.com/carehospital/portal/internal/domain/dashboard"
	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/domain/shell"
	"github.com/carehospital/portal/internal/platform/auth"
	"github.com/carehospital/portal/internal/platform/db"
	"github.com/carehospital/portal/internal/platform/events"
	"github.com/carehospital/portal/internal/platform/gateway"
	"github.com/carehospital/portal/internal/platform/middleware"
	"github.com/carehospital/portal/internal/platform/websocket"
)

const kafkaBuffer = 256

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Care Hospital patient portal",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsDir(cmd, cfg))
			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsDir(cmd, cfg))
			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the departments, doctors and services catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Load the static catalog (safe to run repeatedly)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg.Env)
			gw := gateway.New(gateway.NewPGRepos(pool), pool, logger)
			res, err := catalog.Seed(cmd.Context(), gw, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d department(s), %d doctor(s), %d service(s).\n", res.Departments, res.Doctors, res.Services)
			return nil
		},
	})

	return cmd
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   time.Hour,
		HealthCheckPeriod: time.Minute,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Events
	bus := events.NewBus(logger)
	if cfg.KafkaEnabled() {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic), logger, kafkaBuffer)
		unsubscribe := bus.Subscribe(kp.Handle)
		defer func() {
			unsubscribe()
			if err := kp.Close(); err != nil {
				logger.Warn().Err(err).Msg("kafka publisher close failed")
			}
		}()
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("forwarding events to kafka")
	}

	gw := gateway.New(gateway.NewPGRepos(pool), pool, logger)
	e, cleanup := newServer(serverDeps{
		cfg:    cfg,
		log:    logger,
		gw:     gw,
		pinger: pool,
		stats:  func() *db.PoolStats { return db.GetPoolStats(pool) },
		bus:    bus,
	})
	defer cleanup()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

type serverDeps struct {
	cfg    *config.Config
	log    zerolog.Logger
	gw     *gateway.Gateway
	pinger db.Pinger
	stats  func() *db.PoolStats
	bus    *events.Bus
}

// newServer wires every handler onto a fresh echo instance. cleanup drops
// the subscriptions made here.
func newServer(d serverDeps) (*echo.Echo, func()) {
	cfg, logger := d.cfg, d.log

	tokens := auth.NewTokenIssuer([]byte(cfg.AuthSigningKey), cfg.AuthIssuer, cfg.AuthTokenTTL)
	provider := auth.NewProvider(d.gw, tokens, logger)
	sessions := session.NewController(provider, d.gw, session.NewStore(), logger)

	hub := websocket.NewHub(logger)
	unsubscribeHub := d.bus.Subscribe(hub.HandleEvent)
	unsubscribeSessions := sessions.Store().Subscribe(func(snap session.Snapshot) {
		if !snap.Authenticated() {
			hub.DropSession(snap.SessionID.String())
		}
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	// Global middleware. Attach runs inside Logger so requests are logged
	// with their user.
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{shell.SectionHeader},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(sessions.Attach())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(d.pinger, d.stats))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	authLimiter := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.AuthRateLimitRPS,
		BurstSize:         cfg.AuthRateLimitBurst,
		IdleTTL:           10 * time.Minute,
	})

	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	fragments := e.Group("/fragments")

	shell.NewHandler(dashboard.ShellTabs()).RegisterRoutes(e)
	session.NewHandler(sessions, cfg.IsProduction()).RegisterRoutes(api, authLimiter)
	catalog.NewHandler(catalog.NewLoader(d.gw)).RegisterRoutes(api, fragments)

	svc := dashboard.NewService(d.gw, sessions, d.bus, logger, cfg.CheckInHistoryLimit)
	dashboard.NewHandler(svc).RegisterRoutes(api, fragments)

	websocket.NewHandler(hub, liveTopics, cfg.CORSOrigins).RegisterRoutes(api)

	return e, func() {
		unsubscribeSessions()
		unsubscribeHub()
		sessions.Close()
	}
}

// liveTopics derives the live-update subscription from the session, never
// from the client.
func liveTopics(c echo.Context) (websocket.Subscription, bool) {
	snap := session.FromContext(c)
	if !snap.Authenticated() {
		return websocket.Subscription{}, false
	}
	sub := websocket.Subscription{SessionID: snap.SessionID.String()}
	switch {
	case snap.User.Role == gateway.RoleStaff, snap.User.Role == gateway.RoleAdmin:
		sub.Topics = []string{websocket.StaffTopic}
	case snap.HasProfile():
		sub.Topics = []string{websocket.PatientTopic(snap.Patient.ID)}
	}
	return sub, true
}

// errorHandler writes every error as {message, flash} so forms can show the
// message verbatim.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{
		"message": msg,
		"flash":   shell.Failure(msg),
	})
}
