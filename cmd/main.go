package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Настройка логгера. Уровень уточняется после загрузки конфигурации.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, &app{logger: logger, level: level}, os.Args[1:]); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
