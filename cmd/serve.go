package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-catalog/internal/catalog"
	"github.com/kozaktomas/face-catalog/internal/config"
	"github.com/kozaktomas/face-catalog/internal/detector"
	"github.com/kozaktomas/face-catalog/internal/index"
	"github.com/kozaktomas/face-catalog/internal/store"
	"github.com/kozaktomas/face-catalog/internal/store/memory"
	"github.com/kozaktomas/face-catalog/internal/store/postgres"
	"github.com/kozaktomas/face-catalog/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog API server",
	Long: `Start the Face Catalog web server.
Without DATABASE_URL the catalog runs on the in-memory store and loses
its content on restart; with a PostgreSQL URL faces and people persist
and the embedding index is rebuilt from the database at startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides HTTP_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides HTTP_HOST)")
}

// buildBackend wires the store and the embedding index from config.
// The returned cleanup closes the database pool when one was opened.
func buildBackend(ctx context.Context, cfg *config.Config) (store.Store, index.Index, func(), bool, error) {
	threshold := cfg.Index.HNSWThreshold
	if threshold == 0 {
		threshold = index.DefaultHNSWThreshold
	}

	if cfg.Database.URL == "" {
		fmt.Println("Using in-memory store (set DATABASE_URL for persistence)")
		return memory.New(), index.New(cfg.Embedding.Dim, threshold), func() {}, false, nil
	}

	pg, err := postgres.Open(&cfg.Database)
	if err != nil {
		return nil, nil, nil, false, fmt.Errorf("connect to database: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, nil, false, fmt.Errorf("run migrations: %w", err)
	}
	cleanup := func() { pg.Close() }

	if cfg.Index.Backend == "postgres" {
		fmt.Println("Using PostgreSQL store with pgvector search")
		return pg, postgres.NewVectorIndex(pg, cfg.Embedding.Dim, log), cleanup, false, nil
	}

	fmt.Println("Using PostgreSQL store with in-process embedding index")
	return pg, index.New(cfg.Embedding.Dim, threshold), cleanup, true, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.HTTP.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.HTTP.Host = host
	}

	ctx := context.Background()
	st, idx, cleanup, rebuild, err := buildBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	det := detector.NewHTTPClient(cfg.Detector.URL, time.Duration(cfg.Detector.TimeoutSeconds)*time.Second)
	cat := catalog.New(st, idx, det, cfg, log)

	if rebuild {
		fmt.Println("Rebuilding embedding index from database...")
		n, err := cat.RebuildIndex(ctx, nil)
		if err != nil {
			return fmt.Errorf("rebuild embedding index: %w", err)
		}
		fmt.Printf("Embedding index ready with %d faces\n", n)
	}

	server := web.NewServer(cfg, cat, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
