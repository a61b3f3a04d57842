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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jmcleod/keygate/api"
	"github.com/jmcleod/keygate/license"
	"github.com/jmcleod/keygate/storage"
	bboltstorage "github.com/jmcleod/keygate/storage/bbolt"
	"github.com/jmcleod/keygate/storage/jsonfile"
	"github.com/jmcleod/keygate/storage/memory"
	"github.com/jmcleod/keygate/storage/postgres"
)

var (
	port         int
	dataDir      string
	backend      string
	postgresDSN  string
	reapInterval time.Duration
	rateLimit    time.Duration
)

// apiKeyEnv is the environment variable carrying the shared API key. It may
// also come from a .env file in the working directory.
const apiKeyEnv = "KEYGATE_API_KEY"

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the license validation server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine; the key may come from the real
		// environment.
		_ = godotenv.Load()

		apiKey := os.Getenv(apiKeyEnv)
		if apiKey == "" {
			return fmt.Errorf("%s must be set (environment or .env file)", apiKeyEnv)
		}

		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		engine := license.NewEngine(repo)
		if err := engine.Bootstrap(); err != nil {
			return fmt.Errorf("bootstrapping account store: %w", err)
		}

		a := api.New(engine, apiKey,
			api.WithLogger(logger),
			api.WithThrottleInterval(rateLimit),
			api.WithVersion(Version),
		)
		defer a.Close()

		reaper := license.NewReaper(engine, reapInterval, logger,
			license.WithReapNotify(a.ObserveReaped))
		reaper.Start()
		defer reaper.Stop()

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Mount("/", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (storage: %s)...\n", port, backend)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openRepository selects the storage backend from flags.
func openRepository(ctx context.Context) (storage.Repository, error) {
	switch backend {
	case "bbolt":
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		repo, err := bboltstorage.NewRepositoryFromFile(dataDir+"/keygate.db", nil)
		if err != nil {
			return nil, fmt.Errorf("opening bbolt storage: %w", err)
		}
		return repo, nil
	case "file":
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		repo, err := jsonfile.NewRepository(dataDir)
		if err != nil {
			return nil, fmt.Errorf("opening json file storage: %w", err)
		}
		return repo, nil
	case "postgres":
		if postgresDSN == "" {
			return nil, fmt.Errorf("--postgres-dsn is required with --storage postgres")
		}
		repo, err := postgres.NewRepositoryFromDSN(ctx, postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres storage: %w", err)
		}
		return repo, nil
	case "memory":
		return memory.NewRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want bbolt, file, postgres or memory)", backend)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&backend, "storage", "bbolt", "Storage backend: bbolt, file, postgres or memory")
	serverCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN (with --storage postgres)")
	serverCmd.Flags().DurationVar(&reapInterval, "reap-interval", license.DefaultReapInterval, "How often expired sessions are swept")
	serverCmd.Flags().DurationVar(&rateLimit, "rate-limit", time.Second, "Minimum interval between requests per client address")
}
