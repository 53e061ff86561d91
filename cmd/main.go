package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradejournal/cmd/executor"
	"tradejournal/src/database"
	"tradejournal/src/executors"
	"tradejournal/src/model"
	"tradejournal/src/server"
)

var Version string

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()
	SetupLogger()
	defer handlePanic()

	app := cli.NewApp()
	app.Name = "tradejournal"
	app.Usage = "Bybit trading journal: API server and reconciliation jobs"
	app.Version = Version

	app.Commands = []cli.Command{
		serverCMD,
		syncCMD,
		executorCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serverCMD = cli.Command{
		Name:      "server",
		Usage:     "run the journal API",
		Action:    serverAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "loop",
				Usage: "also run the reconcile loop in this process",
			},
		},
		Description: `Serve /api/positions, /api/orders, /api/sync and /metrics`,
	}
	syncCMD = cli.Command{
		Name:      "sync",
		Usage:     "reconcile once and exit",
		Action:    syncAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "kind",
				Value: "all",
				Usage: "positions, orders or all",
			},
		},
		Description: `Run the position and/or order reconciler a single time`,
	}
	executorCMD = cli.Command{
		Name:        "loop",
		Aliases:     []string{"executor"},
		Usage:       "run the reconcile loop",
		Action:      executorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Reconcile positions and orders every LOOP_PERIOD`,
	}
)

func SetupLogger() {
	config := database.GetConfig()

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(config.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func initDatabases() error {
	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		return fmt.Errorf("connect main database: %w", err)
	}

	// Initialize read-only database
	if err := database.InitReadOnlyDB(); err != nil {
		return fmt.Errorf("connect read-only database: %w", err)
	}
	return nil
}

func serverAction(c *cli.Context) error {
	logrus.WithField("cmd", "server").Info("Starting server CMD")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := initDatabases(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	syncer, closeSyncer, err := executors.NewDefaultSyncer(ctx)
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	defer closeSyncer()

	if c.Bool("loop") {
		go func() {
			if err := executors.StartLoop(ctx, syncer); err != nil {
				logrus.WithError(err).Error("Reconcile loop stopped")
			}
		}()
	}

	return server.StartServer(ctx, server.GetConfig().Port, syncer)
}

func syncAction(c *cli.Context) error {
	logrus.WithField("cmd", "sync").Info("Starting sync CMD")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	syncer, closeSyncer, err := executors.NewDefaultSyncer(ctx)
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	defer closeSyncer()

	switch kind := c.String("kind"); kind {
	case model.SyncKindPositions:
		err = syncer.ReconcilePositions(ctx)
	case model.SyncKindOrders:
		err = syncer.ReconcileOrders(ctx)
	case "all":
		err = syncer.ReconcileAll(ctx)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		logrus.WithError(err).Error("Sync failed")
		return err
	}

	logrus.Info("Sync completed")
	return nil
}

func executorAction(_ *cli.Context) error {
	logrus.WithField("cmd", "executor").Info("Starting executor CMD")

	executorLoop := &executor.Executor{}
	if err := executorLoop.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func handlePanic() {
	if r := recover(); r != nil {
		logrus.WithError(fmt.Errorf("%+v", r)).Error("tradejournal panic")
		//nolint
		time.Sleep(time.Second * 5)
		os.Exit(1)
	}
}
