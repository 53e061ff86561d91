package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/handler"
)

// Syncer triggers reconciliation on demand.
type Syncer interface {
	ReconcilePositions(ctx context.Context) error
	ReconcileOrders(ctx context.Context) error
	ReconcileAll(ctx context.Context) error
}

// NewRouter mounts the journal API. The database globals must be initialised
// before any /api route is served.
func NewRouter(syncer Syncer) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", handler.SyncHandler(syncer))
		r.Get("/sync/runs", handler.DefaultSyncRunsHandler())

		r.Get("/positions", handler.DefaultListPositionsHandler(syncer))
		r.Put("/positions/{id}", handler.DefaultUpdatePositionNotesHandler())

		r.Get("/orders", handler.DefaultListOrdersHandler(syncer))
		r.Put("/orders/{id}", handler.DefaultUpdateOrderNotesHandler())
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, port string, syncer Syncer) error {
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(syncer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server crashed")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
