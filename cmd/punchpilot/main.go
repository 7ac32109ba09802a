// Entry point for the attendance automation service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sky-zhang01/punchpilot-sub001/internal/adapters/notify"
	"github.com/sky-zhang01/punchpilot-sub001/internal/adapters/postgres"
	"github.com/sky-zhang01/punchpilot-sub001/internal/api"
	"github.com/sky-zhang01/punchpilot-sub001/internal/api/handler"
	"github.com/sky-zhang01/punchpilot-sub001/internal/browser"
	"github.com/sky-zhang01/punchpilot-sub001/internal/calendar"
	"github.com/sky-zhang01/punchpilot-sub001/internal/config"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core"
	"github.com/sky-zhang01/punchpilot-sub001/internal/engine"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
	"github.com/sky-zhang01/punchpilot-sub001/internal/remote"
	"github.com/sky-zhang01/punchpilot-sub001/internal/scheduler"
	"github.com/sky-zhang01/punchpilot-sub001/internal/secret"
	"github.com/sky-zhang01/punchpilot-sub001/internal/strategy"
	"github.com/sky-zhang01/punchpilot-sub001/internal/task"
	awspkg "github.com/sky-zhang01/punchpilot-sub001/pkg/aws"
	"github.com/sky-zhang01/punchpilot-sub001/pkg/database"
	"github.com/sky-zhang01/punchpilot-sub001/pkg/logger"
	"github.com/sky-zhang01/punchpilot-sub001/pkg/telemetry"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev)

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("punchpilot", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// DB connection
	db, err := database.NewInstrumentedConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer db.Close()
	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Error preparing database schema")
	}
	log.Info().Msg("Successfully connected to the database.")

	// Credential decryption
	var decrypter ports.Decrypter
	if cfg.SecretKey == "" && cfg.IsLocalDev {
		decrypter = secret.Plaintext{}
	} else {
		decrypter, err = secret.NewAESGCM(cfg.SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid secret key")
		}
	}

	// Outcome notifications
	var notifier ports.Notifier = notify.Noop{}
	if cfg.SESSender != "" && cfg.SESTo != "" {
		awsCfg, err := awspkg.NewAWSConfig(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load SDK config")
		}
		notifier = notify.NewSESNotifier(ses.NewFromConfig(awsCfg), cfg.SESSender, cfg.SESTo)
	}

	// Durable stores
	settings := postgres.NewSettingsStore(db)
	execLog := postgres.NewExecutionLog(db)

	// HR backend client and the browser fallback tier
	hrClient := remote.NewClient(cfg.HRAPIURL, cfg.HRCompany, decrypter, cfg.HRCredentialCipher)
	driver := browser.NewChromeDriver(cfg.BrowserURL, cfg.HRUsername, decrypter,
		cfg.HRCredentialCipher, cfg.BrowserExecPath, cfg.BrowserHeadless)
	executor := browser.NewExecutor(driver, cfg.BrowserTimeout)

	// Engine, detection, planning
	cache := strategy.NewCache(settings)
	eng := engine.New(hrClient, executor, cache, execLog, remote.DefaultClassifier)
	detector := core.NewDetector(hrClient, execLog)
	cal := calendar.NewResolver(customHolidays(cfg))

	sched := scheduler.New(cfg.ScheduleEntries(), cfg.CountryList(), settings,
		cal, detector, eng, execLog, notifier)
	sched.Interval = cfg.TickInterval

	tasks := task.New()

	schedCtx, stopSched := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	// Setup router and server
	router := api.NewRouter(&handler.AttendanceHandler{
		Scheduler: sched,
		Engine:    eng,
		Tasks:     tasks,
		Calendar:  cal,
		Countries: cfg.CountryList(),
		ExecLog:   execLog,
	})

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.EnrichContextWithLogger(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	httpHandler := otelhttp.NewHandler(loggerMiddleware(router), "api")

	serverAddr := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: httpHandler,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Attendance service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSched()
	sched.Stop()
	tasks.Stop()

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

func customHolidays(cfg config.Config) map[string]string {
	out := map[string]string{}
	for _, d := range cfg.CustomHolidayList() {
		out[d] = "custom holiday"
	}
	return out
}
