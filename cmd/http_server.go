package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/ats/bullhorn"
	"github.com/frahmantamala/recruiter-reports/internal/ats/symplr"
	"github.com/frahmantamala/recruiter-reports/internal/auth"
	"github.com/frahmantamala/recruiter-reports/internal/core/events"
	"github.com/frahmantamala/recruiter-reports/internal/core/lock"
	"github.com/frahmantamala/recruiter-reports/internal/core/metrics"
	"github.com/frahmantamala/recruiter-reports/internal/division"
	divisionPostgres "github.com/frahmantamala/recruiter-reports/internal/division/postgres"
	"github.com/frahmantamala/recruiter-reports/internal/hours"
	"github.com/frahmantamala/recruiter-reports/internal/ranking"
	"github.com/frahmantamala/recruiter-reports/internal/snapshot"
	"github.com/frahmantamala/recruiter-reports/internal/transport"
	"github.com/frahmantamala/recruiter-reports/internal/transport/middleware"
	"github.com/frahmantamala/recruiter-reports/internal/transport/rest"
	"github.com/frahmantamala/recruiter-reports/internal/transport/swagger"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	userconfigPostgres "github.com/frahmantamala/recruiter-reports/internal/userconfig/postgres"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server exposing divisions, user configs and reports`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies is the wired object graph shared by the server and the
// report commands.
type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	Mirrors  map[ats.System]*sqlx.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Reports
	Bus      *events.EventBus
	Logger   *slog.Logger

	Divisions   *division.Service
	UserConfigs *userconfig.Service
	Ranking     *ranking.Service
	Hours       *hours.Service
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.Bus.Wait(shutdownCtx); err != nil {
			deps.Logger.Warn("event deliveries still running at shutdown", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	log := deps.Logger

	spec, err := swagger.Load(ctx, cfg.Server.OpenAPIPath, rest.APIPrefix)
	if err != nil {
		return nil, err
	}

	var verifier middleware.TokenVerifier
	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
	if err != nil {
		log.Warn("token verification disabled; user config mutations and recalculations are refused", "error", err)
	} else {
		verifier = jwtManager
	}

	var metricsHandler http.Handler
	if cfg.Observability.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}

	base := transport.NewBaseHandler(log)
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Divisions:   division.NewHandler(base, deps.Divisions),
		UserConfigs: userconfig.NewHandler(base, deps.UserConfigs),
		Ranking:     ranking.NewHandler(base, deps.Ranking),
		Hours:       hours.NewHandler(base, deps.Hours),
	}, rest.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health:         rest.NewHealthHandler(deps.healthChecks()),
		Spec:           spec,
		Verifier:       verifier,
		MetricsPath:    cfg.Observability.Metrics.Path,
		Metrics:        metricsHandler,
	}, log)

	return router, nil
}

func (d *Dependencies) healthChecks() map[string]rest.CheckFunc {
	checks := map[string]rest.CheckFunc{
		"report_store": func(ctx context.Context) error {
			sqlDB, err := d.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	for sys, mirror := range d.Mirrors {
		checks["ats_"+string(sys)] = func(ctx context.Context) error {
			return mirror.PingContext(ctx)
		}
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Mirrors:  make(map[ats.System]*sqlx.DB),
		Registry: prometheus.NewRegistry(),
		Bus:      events.NewEventBus(log),
		Logger:   log,
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.NewReports(deps.Registry)
	registerReportSubscribers(deps.Bus, log)

	var (
		placements []ats.PlacementSource
		orders     ats.OrderSource
		dirOpts    = []userconfig.DirectoryOption{userconfig.WithDiscoveryObserver(deps.Metrics)}
	)

	if config.ATS.Symplr.Enabled {
		mirror, err := openMirror(ctx, config.ATS.Symplr)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("symplr mirror: %w", err)
		}
		deps.Mirrors[ats.Symplr] = mirror
		client := symplr.NewClient(mirror, config.ATS.Symplr.QueryTimeout, log)
		placements = append(placements, client)
		orders = client
		dirOpts = append(dirOpts, userconfig.WithProfileSource(client))
	}

	if config.ATS.Bullhorn.Enabled {
		mirror, err := openMirror(ctx, config.ATS.Bullhorn)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("bullhorn mirror: %w", err)
		}
		deps.Mirrors[ats.Bullhorn] = mirror
		client := bullhorn.NewClient(mirror, config.ATS.Bullhorn.QueryTimeout, config.ATS.Bullhorn.HoursPerDay, log)
		placements = append(placements, client)
		dirOpts = append(dirOpts,
			userconfig.WithProfileSource(client),
			userconfig.WithDepartmentSource(ats.Bullhorn, client),
		)
	}

	var locker lock.Locker
	if config.Redis.Enabled {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable; runs proceed without the week lock until it answers", "addr", config.Redis.Addr, "error", err)
		}
		locker = lock.NewRedisLocker(deps.Redis)
	} else {
		log.Info("redis disabled; concurrent runs for the same week are not guarded")
	}

	divisionRepo := divisionPostgres.NewDivisionRepository(db)
	userConfigRepo := userconfigPostgres.NewUserConfigRepository(db)
	store := snapshot.NewStore(db, config.Reports.SnapshotBatchSize, log)

	deps.Divisions = division.NewService(divisionRepo, log)
	deps.UserConfigs = userconfig.NewService(userConfigRepo, deps.Divisions, log)
	directory := userconfig.NewDirectory(userConfigRepo, deps.Divisions, config.Reports.DefaultDivisionID, log, dirOpts...)

	deps.Ranking = ranking.NewService(ranking.Dependencies{
		Divisions:  deps.Divisions,
		Identities: directory,
		Sources:    placements,
		Store:      store,
		Locker:     locker,
		Publisher:  deps.Bus,
		Metrics:    deps.Metrics,
	}, ranking.Config{
		RetentionWeeks: config.Reports.RankingRetentionWeeks,
		LockTTL:        config.Reports.LockTTL,
	}, log)

	deps.Hours = hours.NewService(hours.Dependencies{
		Identities: directory,
		Roster:     deps.UserConfigs,
		Orders:     orders,
		Store:      store,
		Locker:     locker,
		Publisher:  deps.Bus,
		Metrics:    deps.Metrics,
	}, hours.Config{
		RetentionDays: config.Reports.HoursRetentionDays,
		LockTTL:       config.Reports.LockTTL,
	}, log)

	return deps, nil
}

// Close releases every connection the graph opened.
func (d *Dependencies) Close() {
	for sys, mirror := range d.Mirrors {
		if err := mirror.Close(); err != nil {
			d.Logger.Error("mirror close error", "ats", string(sys), "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}

func openMirror(ctx context.Context, cfg internal.MirrorConfig) (*sqlx.DB, error) {
	return ats.OpenMirror(ctx, ats.MirrorOptions{
		Source:       cfg.Source,
		MaxOpenConns: cfg.MaxOpenConns,
		QueryTimeout: cfg.QueryTimeout,
	})
}

// initDB opens the report store.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
