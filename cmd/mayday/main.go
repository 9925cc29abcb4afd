package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/user/mayday/internal/collector"
	"github.com/user/mayday/internal/config"
	"github.com/user/mayday/internal/notification"
	"github.com/user/mayday/internal/observability"
	"github.com/user/mayday/internal/storage"
	storagemongo "github.com/user/mayday/internal/storage/mongodb"
	storagesql "github.com/user/mayday/internal/storage/sql"
	"github.com/user/mayday/pkg/submitter"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to mayday.yaml (optional)")
	addr := flag.String("addr", "", "listen address, overrides config")
	dbType := flag.String("db-type", "", "database type: sqlite, postgres, mysql, mariadb, mongodb")
	dbConn := flag.String("db-conn", "", "database connection string")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Collector.Listen = *addr
	}
	if *dbType != "" {
		cfg.Database.Type = *dbType
	}
	if *dbConn != "" {
		cfg.Database.Conn = *dbConn
	}

	logger := submitter.NewDefaultLogger()

	store, err := openStorage(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	if s, ok := store.(interface{ Init(context.Context) error }); ok {
		// Bound initialization so a locked SQLite file does not stall startup.
		initCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.Init(initCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
	}

	shutdownOTLP, err := observability.InitOTLP(context.Background(), cfg.OTLP)
	if err != nil {
		log.Fatalf("Failed to initialize OTLP: %v", err)
	}

	srv := collector.NewServer(store, cfg.Collector)
	srv.SetLogger(logger)

	notifier := notification.NewService(cfg.Notification, logger)
	if notifier.Enabled() {
		srv.SetNotifier(notifier)
	}

	if err := srv.Init(context.Background()); err != nil {
		log.Fatalf("Failed to initialize collector: %v", err)
	}

	janitor := collector.NewJanitor(store, cfg.Retention, logger)
	if err := janitor.Start(); err != nil {
		log.Fatalf("Failed to start retention janitor: %v", err)
	}

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal %v, shutting down gracefully...\n", sig)
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    cfg.Collector.Listen,
		Handler: srv.Routes(),
	}

	fmt.Printf("Starting mayday collector on %s using %s storage...\n", cfg.Collector.Listen, cfg.Database.Type)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("collector server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		janitor.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down collector server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("%v", err)
	}

	if err := shutdownOTLP(context.Background()); err != nil {
		log.Printf("OTLP shutdown: %v", err)
	}
	fmt.Println("mayday shutdown complete")
}

func openStorage(cfg config.DatabaseConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "sqlite", "":
		db, err := sql.Open("sqlite", sqliteDSN(cfg.Conn))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// Allow limited concurrency with WAL and busy timeout while staying
		// safe for SQLite.
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(1)
		return storagesql.NewSQLStorage(db, "sqlite"), nil
	case "postgres":
		db, err := sql.Open("pgx", cfg.Conn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return storagesql.NewSQLStorage(db, "pgx"), nil
	case "mysql", "mariadb":
		db, err := sql.Open("mysql", mysqlDSN(cfg.Conn))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return storagesql.NewSQLStorage(db, "mysql"), nil
	case "mongodb":
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.Conn))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		dbName := cfg.Name
		if dbName == "" {
			dbName = "mayday"
		}
		return storagemongo.NewMongoStorage(client, dbName), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func sqliteDSN(conn string) string {
	if strings.Contains(conn, "?") {
		return conn
	}
	// Default busy_timeout avoids long startup stalls when the DB is locked.
	busy := os.Getenv("MAYDAY_SQLITE_BUSY_TIMEOUT_MS")
	if busy == "" {
		busy = "2000"
	}
	return conn + fmt.Sprintf("?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%s)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", busy)
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(conn string) string {
	if strings.Contains(conn, "parseTime") {
		return conn
	}
	if strings.Contains(conn, "?") {
		return conn + "&parseTime=true"
	}
	return conn + "?parseTime=true"
}
