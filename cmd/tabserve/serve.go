package tabserve

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/nickvanderzwet/tabserve/pkg/config"
	"github.com/nickvanderzwet/tabserve/pkg/metrics"
	"github.com/nickvanderzwet/tabserve/pkg/rest"
	"github.com/nickvanderzwet/tabserve/pkg/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Reads the database schema and serves every table as a read-only JSON endpoint`,
	Run:   runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("database.connString", "c", "", "database connection string")
	f.String("database.driver", "", "database driver (postgres, mysql)")
	f.String("database.excludedTables", "", "comma-separated table names to skip")
	f.StringP("server.listenAddr", "l", "", "REST server listen address")
	f.String("server.baseURL", "", "Base URL for API endpoints")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	if cfg == nil {
		log.Fatal("Configuration not loaded")
	}

	// flag overrides
	if s := viper.GetString("database.connString"); s != "" {
		cfg.Database.ConnString = s
	}
	if s := viper.GetString("database.driver"); s != "" {
		cfg.Database.Driver = s
	}
	if s := viper.GetString("database.excludedTables"); s != "" {
		cfg.Database.ExcludedTables = s
	}
	if s := viper.GetString("server.listenAddr"); s != "" {
		cfg.Server.ListenAddr = s
	}
	if s := viper.GetString("server.baseURL"); s != "" {
		cfg.Server.BaseURL = s
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(logLevel)
	defer logger.Sync()

	ctx := context.Background()
	src, err := newSource(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer src.Close()

	if err := waitForDatabase(ctx, src, logger); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	tables, err := src.Extract(ctx, schema.ExclusionSet(cfg.Database.ExcludedTables))
	if err != nil {
		logger.Fatal("schema extraction failed", zap.Error(err))
	}
	if len(tables) == 0 {
		logger.Warn("no tables found, serving catalog endpoints only")
	}

	catalog := rest.NewCatalog(tables, logger)

	wg := &sync.WaitGroup{}
	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(metricsCtx, wg, &metrics.PromServerOpts{Addr: cfg.Metrics.ListenAddr})
	}

	server := rest.NewServer(src, catalog, &rest.ServerOpts{
		BaseURL: cfg.Server.BaseURL,
		Version: config.Version,
		Logger:  logger,
	})

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown error", zap.Error(err))
	}

	cancelMetrics()
	wg.Wait()
	logger.Info("server stopped")
}

// newSource opens the configured backend. The MySQL catalog queries need
// the database name; when only a connString is given it is parsed out of
// the DSN.
func newSource(ctx context.Context, db config.DatabaseConfig, logger *zap.Logger) (schema.Source, error) {
	po, err := db.PoolOptions()
	if err != nil {
		return nil, err
	}
	pool := schema.WithPool(schema.PoolOptions{
		MaxConns:        po.MaxConns,
		MinConns:        po.MinConns,
		MaxConnLifetime: po.MaxConnLifetime,
		MaxConnIdleTime: po.MaxConnIdleTime,
	})

	switch db.Driver {
	case config.DriverMySQL:
		dbname := db.DBName
		if dbname == "" {
			if parsed, err := mysql.ParseDSN(db.DSN()); err == nil {
				dbname = parsed.DBName
			}
		}
		return schema.NewMySQLSource(db.DSN(), dbname, logger, pool)
	default:
		return schema.NewPostgresSource(ctx, db.DSN(), db.Schema, logger, pool)
	}
}

// waitForDatabase pings until the database answers, giving up after a minute.
func waitForDatabase(ctx context.Context, src schema.Source, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 60 * time.Second

	operation := func() error {
		err := src.Ping(ctx)
		if err != nil {
			logger.Info("waiting for database", zap.Error(err))
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger
}
