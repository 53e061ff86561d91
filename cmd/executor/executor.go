package executor

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"tradejournal/src/database"
	"tradejournal/src/executors"
)

// Executor runs the reconcile loop as a standalone process.
type Executor struct{}

func (t *Executor) Start() error {
	config := GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	syncer, closeSyncer, err := executors.NewDefaultSyncer(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to build syncer")
		return err
	}
	defer closeSyncer()

	if config.ServeMetricsPort != "" {
		go serveMetrics(ctx, config.ServeMetricsPort)
	}

	if err := executors.StartLoop(ctx, syncer); err != nil {
		logrus.WithError(err).Error("Failed to start reconcile loop")
		return err
	}

	return nil
}

func serveMetrics(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.WithField("port", port).Info("Serving executor metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Metrics server crashed")
	}
}
