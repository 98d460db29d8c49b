// Package bot is the Telegram front-end: it turns commands and button
// presses into folder listings and upload jobs.
package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"megadrop/internal/folders"
	"megadrop/internal/pipeline"
	"megadrop/internal/resolve"
	"megadrop/internal/session"
	"megadrop/internal/storage"
	"megadrop/internal/worker"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Resolver interface {
	Resolve(ctx context.Context, raw string) (resolve.Target, error)
}

type Runner interface {
	Run(ctx context.Context, job pipeline.Job, rep pipeline.Reporter) (pipeline.Outcome, error)
}

type Options struct {
	API      Sender
	Sessions *session.Store
	Resolver Resolver
	Storage  storage.Client
	Pool     *worker.Pool
	Runner   Runner
	Logger   *zap.Logger

	PageSize         int
	ProgressInterval time.Duration
	JobTimeout       time.Duration
}

type Bot struct {
	api      Sender
	sessions *session.Store
	resolver Resolver
	storage  storage.Client
	pool     *worker.Pool
	runner   Runner
	logger   *zap.Logger

	pageSize         int
	progressInterval time.Duration
	jobTimeout       time.Duration

	wg sync.WaitGroup
}

func New(opts Options) *Bot {
	b := &Bot{
		api:              opts.API,
		sessions:         opts.Sessions,
		resolver:         opts.Resolver,
		storage:          opts.Storage,
		pool:             opts.Pool,
		runner:           opts.Runner,
		logger:           opts.Logger,
		pageSize:         opts.PageSize,
		progressInterval: opts.ProgressInterval,
		jobTimeout:       opts.JobTimeout,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.sessions == nil {
		b.sessions = session.NewStore(0)
	}
	if b.pool == nil {
		b.pool = worker.NewPool(worker.DefaultSize)
	}
	if b.pageSize <= 0 {
		b.pageSize = 20
	}
	if b.progressInterval <= 0 {
		b.progressInterval = 3 * time.Second
	}
	return b
}

// Run handles updates until the channel closes or ctx is done, then waits
// for in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.logger.Info("Bot is polling")
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// Wait blocks until every handler started by Run has returned.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Update handler panicked", zap.Any("panic", r), zap.Int("update", update.UpdateID))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) listFolders(ctx context.Context) ([]folders.Folder, error) {
	var list []folders.Folder
	err := b.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		list, err = storage.Folders(ctx, b.storage)
		return err
	})
	return list, err
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := b.api.Send(c)
	if err != nil {
		b.logger.Warn("Telegram send failed", zap.Error(err))
	}
	return msg, err
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Debug("Telegram request failed", zap.Error(err))
	}
}
