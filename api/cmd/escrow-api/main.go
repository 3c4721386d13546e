package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/embeddedgames/escrow/api/config"
	"github.com/embeddedgames/escrow/api/handlers"
	"github.com/embeddedgames/escrow/api/metrics"
	"github.com/embeddedgames/escrow/api/server"
	"github.com/embeddedgames/escrow/program/pkg/escrow"
	"github.com/embeddedgames/escrow/program/pkg/store/memory"
	"github.com/embeddedgames/escrow/program/pkg/store/postgres"
	"github.com/embeddedgames/escrow/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr  = "0.0.0.0:8080"
	defaultMetricsAddr = "0.0.0.0:0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP listen address (or set LISTEN_ADDR env var)")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "address to listen on for prometheus metrics, empty to disable (or set METRICS_ADDR env var)")
	programIDFlag := flag.String("program-id", escrow.DefaultProgramID.String(), "escrow program ID the treasury and config addresses derive from (or set ESCROW_PROGRAM_ID env var)")
	storeFlag := flag.String("store", "memory", "state store: memory or postgres (or set ESCROW_STORE env var)")
	postgresMigrateFlag := flag.Bool("postgres-migrate", false, "apply postgres migrations on startup (or set POSTGRES_RUN_MIGRATIONS=true)")
	allowedOriginsFlag := flag.String("allowed-origins", "", "comma-separated CORS origins (or set ALLOWED_ORIGINS env var)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "maximum time to wait for in-flight requests during graceful shutdown")

	flag.Parse()

	// Override flags with environment variables if set
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		*listenAddrFlag = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		*metricsAddrFlag = v
	}
	if v := os.Getenv("ESCROW_PROGRAM_ID"); v != "" {
		*programIDFlag = v
	}
	if v := os.Getenv("ESCROW_STORE"); v != "" {
		*storeFlag = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		*allowedOriginsFlag = v
	}

	log := logger.New(*verboseFlag)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Release:     version,
			Environment: os.Getenv("SENTRY_ENVIRONMENT"),
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info("sentry initialized")
	}

	programID, err := solana.PublicKeyFromBase58(*programIDFlag)
	if err != nil {
		return fmt.Errorf("invalid --program-id: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, log, *storeFlag, *postgresMigrateFlag)
	if err != nil {
		return err
	}
	defer closeStore()

	program, err := escrow.NewProgram(escrow.ProgramConfig{
		Logger:    log,
		Store:     store,
		ProgramID: programID,
	})
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}
	log.Info("escrow program ready", "program_id", programID, "treasury", program.Treasury().Address, "store", *storeFlag)

	var origins []string
	for _, o := range strings.Split(*allowedOriginsFlag, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	srv, err := server.New(server.Config{
		Logger:          log,
		ListenAddr:      *listenAddrFlag,
		ShutdownTimeout: *shutdownTimeoutFlag,
		AllowedOrigins:  origins,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
		HandlersConfig: handlers.Config{
			Logger:       log,
			Program:      program,
			ClientSecret: os.Getenv("ESCROW_CLIENT_SECRET"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		g.Go(func() error {
			return serveMetrics(ctx, log, *metricsAddrFlag)
		})
	}

	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, log *slog.Logger, kind string, migrate bool) (escrow.Store, func(), error) {
	switch kind {
	case "memory":
		log.Warn("using in-memory store, state is lost on restart")
		store, err := memory.NewStore(memory.StoreConfig{Logger: log})
		return store, func() {}, err
	case "postgres":
		pgCfg, err := config.PostgresFromEnv()
		if err != nil {
			return nil, nil, err
		}
		pgCfg.RunMigrations = pgCfg.RunMigrations || migrate
		pool, err := config.OpenPostgres(ctx, log, pgCfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(postgres.StoreConfig{Logger: log, DB: pool})
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want memory or postgres)", kind)
	}
}

func serveMetrics(ctx context.Context, log *slog.Logger, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start prometheus metrics server listener: %w", err)
	}
	log.Info("prometheus metrics server listening", "address", listener.Addr().String())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	if err := metricsSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
