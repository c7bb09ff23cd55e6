package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"papertrader/src/calendar"
	"papertrader/src/cleanup"
	"papertrader/src/database"
	"papertrader/src/executors"
	"papertrader/src/handler"
	"papertrader/src/repository"
	"papertrader/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Papertrader CMD"
	app.Usage = "The papertrader command line interface"

	app.Commands = []cli.Command{
		serverCMD,
		tickCMD,
		loopCMD,
		swingCMD,
		planDayCMD,
		exitDayCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	dateFlag = cli.StringFlag{
		Name:  "date",
		Usage: "trading date as YYYY-MM-DD, defaults to today",
	}

	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the HTTP API server",
		Action:      serverAction,
		Description: `Run the API server with the cleanup scheduler`,
	}
	tickCMD = cli.Command{
		Name:   "tick",
		Usage:  "run one decision tick",
		Action: tickAction,
		Flags: []cli.Flag{
			dateFlag,
			cli.StringFlag{Name: "interval", Usage: "candle interval, e.g. 5m"},
		},
		Description: `Run one pass of the decision pipeline and exit`,
	}
	loopCMD = cli.Command{
		Name:        "loop",
		Usage:       "run the periodic tick loop",
		Action:      loopAction,
		Description: `Tick the engine on a fixed period until interrupted`,
	}
	swingCMD = cli.Command{
		Name:        "swing",
		Usage:       "run the daily swing cycle",
		Action:      swingAction,
		Flags:       []cli.Flag{dateFlag},
		Description: `Process swing triggers, exits and new setups for the day`,
	}
	planDayCMD = cli.Command{
		Name:   "planday",
		Usage:  "rank the universe and pin the day's watchlist",
		Action: planDayAction,
		Flags: []cli.Flag{
			dateFlag,
			cli.BoolFlag{Name: "force", Usage: "replace an existing watchlist"},
		},
		Description: `Rank all symbols and store the top-N watchlist`,
	}
	exitDayCMD = cli.Command{
		Name:        "exitday",
		Usage:       "force-close all open positions",
		Action:      exitDayAction,
		Flags:       []cli.Flag{dateFlag},
		Description: `Close every open position and intraday plan at last price`,
	}
)

func initAll() error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return database.InitMainDB()
}

func parseDate(c *cli.Context) (time.Time, error) {
	raw := c.String("date")
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", raw, calendar.Location())
}

func serverAction(_ *cli.Context) error {
	if err := initAll(); err != nil {
		return err
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.StartStream(ctx)

	scheduler := cleanup.NewScheduler(repository.NewRankAuditRepository(), cleanup.GetConfig())
	go scheduler.Start(ctx)

	engineHandler := handler.NewEngineHandler(
		eng,
		repository.NewPositionRepository(),
		repository.NewRankAuditRepository(),
		repository.NewDecisionRepository(),
	)
	server.StartServer(server.GetConfig().Port, engineHandler)
	return nil
}

func tickAction(c *cli.Context) error {
	if err := initAll(); err != nil {
		return err
	}
	date, err := parseDate(c)
	if err != nil {
		return err
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		return err
	}

	summary, err := eng.RunTick(context.Background(), date, c.String("interval"))
	if err != nil {
		return err
	}
	logrus.WithFields(map[string]interface{}{
		"run_id":     summary.RunID,
		"buys":       summary.Buys,
		"sells":      summary.Sells,
		"holds":      summary.Holds,
		"rebalances": summary.Rebalances,
	}).Info("Tick completed")
	return nil
}

func loopAction(_ *cli.Context) error {
	if err := initAll(); err != nil {
		return err
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.StartStream(ctx)
	return executors.StartLoop(ctx, eng)
}

func swingAction(c *cli.Context) error {
	if err := initAll(); err != nil {
		return err
	}
	date, err := parseDate(c)
	if err != nil {
		return err
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		return err
	}

	summary, err := eng.SwingCycle(context.Background(), date)
	if err != nil {
		return err
	}
	logrus.WithFields(map[string]interface{}{
		"triggered":  summary.Triggered,
		"closed":     summary.Closed,
		"new_setups": summary.NewSetups,
	}).Info("Swing cycle completed")
	return nil
}

func planDayAction(c *cli.Context) error {
	if err := initAll(); err != nil {
		return err
	}
	date, err := parseDate(c)
	if err != nil {
		return err
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		return err
	}

	entries, err := eng.PlanDay(context.Background(), date, c.Bool("force"))
	if err != nil {
		return err
	}
	logrus.WithField("entries", len(entries)).Info("Day planned")
	return nil
}

func exitDayAction(c *cli.Context) error {
	if err := initAll(); err != nil {
		return err
	}
	date, err := parseDate(c)
	if err != nil {
		return err
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		return err
	}

	summary, err := eng.ExitDay(context.Background(), date)
	if err != nil {
		return err
	}
	logrus.WithFields(map[string]interface{}{
		"positions_closed": len(summary.ClosedPositions),
		"plans_closed":     len(summary.ClosedPlans),
	}).Info("Day exited")
	return nil
}
