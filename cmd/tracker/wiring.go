package main

import (
	"fmt"

	"cgv_schedule_tracker/internal/app"
	"cgv_schedule_tracker/internal/infra/cgv"
	"cgv_schedule_tracker/internal/infra/config"
	"cgv_schedule_tracker/internal/infra/logger"
	"cgv_schedule_tracker/internal/infra/scheduler"
	"cgv_schedule_tracker/internal/infra/telegram"

	"github.com/sirupsen/logrus"
)

// setup loads the configuration and builds the tracker. Nothing here touches
// the network, so a configuration error always surfaces before the first
// request.
func setup() (*app.Tracker, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   logger.Get().GetLevel().String(),
		"environment": cfg.Environment,
		"date":        cfg.TargetDate,
		"movie":       cfg.MovieNo,
		"site":        cfg.SiteNo,
	}).Info("Configuration loaded")

	waiter, err := scheduler.New(cfg.PollSchedule, cfg.CheckInterval)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramAPIURL)
	if err != nil {
		return nil, nil, err
	}
	notifier := app.NewTelegramNotifier(telegram.NewTelebotAdapter(bot), cfg.TelegramChatID, logger.Component("telegram"))
	mainLogger.Info("Telegram notifier initialized")

	cgvClient := cgv.NewClient(cfg)

	tracker := app.NewTracker(
		cgvClient,
		notifier,
		waiter,
		app.TrackerOptions{
			TargetDate:         cfg.TargetDate,
			MovieNo:            cfg.MovieNo,
			SiteNo:             cfg.SiteNo,
			MaxAttempts:        cfg.MaxAttempts,
			StopOnUnauthorized: cfg.StopOnUnauthorized,
		},
		logger.Component("tracker"),
	)

	return tracker, cgvClient.Close, nil
}
