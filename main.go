package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/cleanup"
	"papertrader/src/database"
	"papertrader/src/executors"
	"papertrader/src/handler"
	"papertrader/src/repository"
	"papertrader/src/server"
)

var (
	APP_NAME = os.Getenv("APP_NAME")
)

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	eng, err := executors.BuildEngine()
	if err != nil {
		logger.WithError(err).Fatal("Failed to build decision engine")
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

	go func() {
		if err := executors.StartLoop(ctx, eng); err != nil {
			logger.WithError(err).Error("Tick loop stopped")
		}
	}()

	server.StartServer(server.GetConfig().Port, engineHandler)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
