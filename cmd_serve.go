package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"megadrop/internal/bot"
	"megadrop/internal/health"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the health check listener",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger)
	g, ctx := errgroup.WithContext(ctx)

	hs := health.New(cfg.HealthAddr(), a.sessions.Len, logger.Named("health"))
	g.Go(func() error { return hs.Run(ctx) })

	if cfg.Telegram.Token == "" {
		logger.Error("Bot token missing!")
		stop()
		_ = g.Wait()
		return errors.New("bot token missing: set TELEGRAM_BOT_TOKEN")
	}

	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("telegram"))); err != nil {
		return err
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	b := bot.New(bot.Options{
		API:              api,
		Sessions:         a.sessions,
		Resolver:         a.resolver,
		Storage:          a.storage,
		Pool:             a.pool,
		Runner:           a.runner,
		Logger:           logger.Named("bot"),
		PageSize:         cfg.Telegram.PageSize,
		ProgressInterval: cfg.ProgressInterval(),
		JobTimeout:       cfg.DownloadTimeout(),
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	g.Go(func() error {
		<-ctx.Done()
		api.StopReceivingUpdates()
		return nil
	})
	g.Go(func() error { return b.Run(ctx, updates) })

	err = g.Wait()
	a.pool.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shut down")
	return nil
}
