// Command occsearch runs or administers the occupation search service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/occsearch/engine/internal/config"
	"github.com/occsearch/engine/internal/engine"
	"github.com/occsearch/engine/internal/httpapi"
)

var (
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "occsearch",
	Short: "Multilingual semantic search over the occupation catalog",
	Long:  `occsearch serves and administers semantic search over the NCO occupation catalog.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search service",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		e, err := engine.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("build engine: %w", err)
		}
		defer e.Close()

		router := httpapi.NewRouter(httpapi.Deps{
			Engine:           e,
			CORSOrigins:      cfg.CORSOrigins,
			AdminToken:       cfg.AdminToken,
			RateLimitSearch:  cfg.RateLimitSearch,
			RateLimitAdmin:   cfg.RateLimitAdmin,
			AllowTestRateKey: cfg.AllowTestRateKey,
		})

		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Infow("listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the catalog file and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		e, err := engine.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("build engine: %w", err)
		}
		defer e.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ReindexTimeout())
		defer cancel()

		result, err := e.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		fmt.Printf("reindexed %d vectors in %s\n", result.Vectors, result.Duration)
		return nil
	},
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Query a running instance's /health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		url := fmt.Sprintf("http://%s:%d/health", cfg.Host, cfg.Port)
		client := http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("healthcheck request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
		}
		fmt.Println("ok")
		return nil
	},
}

func newLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(logLevel)
	if err == nil {
		cfg.Level = level
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, reindexCmd, healthcheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
