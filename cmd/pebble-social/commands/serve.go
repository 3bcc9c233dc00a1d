package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdobak/go-xerrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/internal/admin"
	"github.com/marshallshelly/pebble-social/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin JSON API",
	Long: `Serve CRUD for every social model under /admin, plus /healthz and
/metrics. SIGINT or SIGTERM drains in-flight requests before exiting.

Examples:
  pebble-social serve
  pebble-social serve --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides ADMIN_ADDR)")
}

// corsHandler answers cross-origin requests from the configured origins.
// With none configured it returns next unchanged.
func corsHandler(c config.CORSConfig, next http.Handler) http.Handler {
	if len(c.AllowedOrigins) == 0 {
		return next
	}
	return cors.New(cors.Options{
		AllowedOrigins: c.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", admin.RequestIDHeader},
		ExposedHeaders: []string{admin.RequestIDHeader},
	}).Handler(next)
}

func runServe(ctx context.Context) error {
	db, session, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	a, err := admin.Setup(cfg.Admin.Name, session, cfg.BcryptCost)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	addr := cfg.Admin.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr: addr,
		Handler: corsHandler(cfg.CORS, admin.Handler(a, admin.HandlerOptions{
			Logger:   logger,
			PageSize: cfg.Admin.PageSize,
			Registry: reg,
			DB:       db,
		})),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin listening", "addr", addr, "admin", a.Name, "views", len(a.Views()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return xerrors.New(err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return xerrors.New(err)
	}
	logger.Info("server stopped")
	return nil
}
