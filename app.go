package main

import (
	"go.uber.org/zap"

	"megadrop/internal/config"
	"megadrop/internal/media"
	"megadrop/internal/pipeline"
	"megadrop/internal/resolve"
	"megadrop/internal/session"
	"megadrop/internal/storage"
	"megadrop/internal/worker"
)

// app holds the components shared by every command.
type app struct {
	storage  *storage.Mega
	resolver *resolve.Resolver
	pool     *worker.Pool
	runner   *pipeline.Runner
	sessions *session.Store
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	st := storage.NewMega(cfg.Mega.Email, cfg.Mega.Password, logger.Named("mega"))
	dl := media.NewDownloader(media.Options{
		Binary:      cfg.Download.Binary,
		Dir:         cfg.Download.Dir,
		Format:      cfg.Download.Format,
		Quality:     cfg.Download.Quality,
		CookiesFile: cfg.Download.CookiesFile,
		ExtraArgs:   cfg.Download.ExtraArgs,
	}, logger.Named("ytdlp"))
	pool := worker.NewPool(cfg.Workers)

	return &app{
		storage:  st,
		resolver: resolve.New(logger.Named("resolve")),
		pool:     pool,
		runner: &pipeline.Runner{
			Downloader: dl,
			Storage:    st,
			Pool:       pool,
			Logger:     logger.Named("pipeline"),
		},
		sessions: session.NewStore(cfg.SessionTTLDuration()),
	}
}
