package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carehub/carehub/internal/config"
	"github.com/carehub/carehub/internal/domain/appointment"
	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/domain/billing"
	"github.com/carehub/carehub/internal/domain/medicalrecord"
	"github.com/carehub/carehub/internal/domain/messaging"
	"github.com/carehub/carehub/internal/domain/notification"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/middleware"
	platformnotif "github.com/carehub/carehub/internal/platform/notification"
	"github.com/carehub/carehub/internal/platform/payment"
	"github.com/carehub/carehub/internal/platform/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carehub-server",
		Short: "CareHub clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Only reachable in development; Validate rejects this elsewhere.
		buf := make([]byte, 32)
		if _, err := cryptorand.Read(buf); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate dev JWT secret")
		}
		jwtSecret = hex.EncodeToString(buf)
		logger.Warn().Msg("JWT_SECRET not set; using an ephemeral secret, tokens will not survive restarts")
	}
	jwtCfg := auth.JWTConfig{
		Secret: []byte(jwtSecret),
		TTL:    time.Duration(cfg.JWTTTLHours) * time.Hour,
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories
	userRepo := user.NewRepoPG(pool)
	apptRepo := appointment.NewRepoPG(pool)
	scheduleRepo := appointment.NewScheduleRepoPG(pool)
	recordRepo := medicalrecord.NewRepoPG(pool)
	messagingRepo := messaging.NewRepoPG(pool)
	billingRepo := billing.NewRepoPG(pool)
	notifRepo := notification.NewRepoPG(pool)
	auditRepo := audit.NewRepoPG(pool)

	// Real-time hub
	hub := ws.NewHub(logger)

	// External integrations
	paymentClient := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey, logger)
	if cfg.PaymentAPIURL == "" {
		logger.Warn().Msg("PAYMENT_API_URL not set; invoice payment will fail until configured")
	}

	var smsSender platformnotif.SMSSender = platformnotif.NewLogSMSSender(logger)
	if cfg.SMSAPIURL != "" {
		smsSender = platformnotif.NewTextbeltSMSSender(cfg.SMSAPIURL, cfg.SMSAPIKey, logger)
	}
	external := platformnotif.NewManager(
		platformnotif.NewLogEmailSender(logger),
		smsSender,
		platformnotif.NewTemplateEngine(),
	)

	// Services
	userSvc := user.NewService(userRepo, jwtCfg)

	hours := appointment.ClinicHours{
		OpenMinute:  cfg.ClinicOpenHour * 60,
		CloseMinute: cfg.ClinicCloseHour * 60,
		SlotMinutes: cfg.SlotMinutes,
	}
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	apptSvc := appointment.NewService(apptRepo, scheduleRepo, userSvc, hours, runTx)
	recordSvc := medicalrecord.NewService(recordRepo, userSvc)
	messagingSvc := messaging.NewService(messagingRepo, userSvc)
	billingSvc := billing.NewService(billingRepo, userSvc, paymentClient)
	notifSvc := notification.NewService(notifRepo)
	auditSvc := audit.NewService(auditRepo)

	// Event wiring: services publish to the hub; the notification adapters
	// fan domain events into the in-app feed and external channels.
	apptSvc.SetEventPublisher(hub)
	messagingSvc.SetEventPublisher(hub)
	notifSvc.SetEventPublisher(hub)

	adapters := notification.NewAdapters(notifSvc, userSvc, external, logger)
	apptSvc.SetNotifier(adapters)
	messagingSvc.SetNotifier(adapters)
	billingSvc.SetNotifier(adapters)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health endpoints stay outside authentication and rate limiting.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	authMW := auth.JWTMiddleware(jwtCfg)

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	public := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg), authMW, middleware.Audit(logger, auditSvc.Recorder()))

	user.NewHandler(userSvc).RegisterRoutes(public, api)
	appointment.NewHandler(apptSvc).RegisterRoutes(api)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(api)
	messaging.NewHandler(messagingSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	notification.NewHandler(notifSvc).RegisterRoutes(api)
	audit.NewHandler(auditSvc).RegisterRoutes(api)

	// WebSocket endpoint; authenticated like the API but not audited
	// (one row per connection would drown the trail).
	wsGroup := e.Group("", authMW)
	ws.NewHandler(hub, messagingSvc).RegisterRoutes(wsGroup)

	// Start and wait for shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
