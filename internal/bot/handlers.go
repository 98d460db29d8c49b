package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"megadrop/internal/folders"
	"megadrop/internal/pipeline"
	"megadrop/internal/session"
)

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	log := b.logger.With(zap.Int64("user", m.From.ID), zap.String("command", m.Command()))
	log.Debug("Command received")

	switch m.Command() {
	case "start", "help":
		b.reply(m.Chat.ID, textWelcome)
	case "uploadtomega", "upload":
		b.handleUpload(ctx, m, log)
	case "cancel":
		s, ok := b.sessions.Get(m.From.ID)
		if !ok {
			b.reply(m.Chat.ID, textNoSession())
			return
		}
		if s.Busy {
			b.reply(m.Chat.ID, esc("⏳ "+session.ErrBusy.Error()+", it cannot be cancelled."))
			return
		}
		b.sessions.Delete(m.From.ID)
		b.reply(m.Chat.ID, textCancelled())
	default:
		b.reply(m.Chat.ID, textUnknown)
	}
}

func (b *Bot) handleUpload(ctx context.Context, m *tgbotapi.Message, log *zap.Logger) {
	args := strings.Fields(m.CommandArguments())
	if len(args) == 0 {
		b.reply(m.Chat.ID, textUsage)
		return
	}
	uid := m.From.ID

	if s, ok := b.sessions.Get(uid); ok && s.Busy {
		b.reply(m.Chat.ID, esc("⏳ "+session.ErrBusy.Error()+"."))
		return
	}

	target, err := b.resolver.Resolve(ctx, args[0])
	if err != nil {
		b.reply(m.Chat.ID, esc("⚠️ "+err.Error()))
		return
	}
	caption := describe(target)
	b.sessions.Put(session.Session{UserID: uid, URL: target.URL, Title: caption})
	log.Info("Upload requested", zap.String("url", target.URL))

	msg, err := b.send(newMessage(m.Chat.ID, textFetching()))
	if err != nil {
		return
	}

	list, err := b.listFolders(ctx)
	if err != nil {
		log.Warn("Folder listing failed", zap.Error(err))
		b.sessions.Delete(uid)
		b.edit(m.Chat.ID, msg.MessageID, textError(err), nil)
		return
	}
	if len(list) == 0 {
		b.sessions.Delete(uid)
		b.edit(m.Chat.ID, msg.MessageID, textNoFolders(), nil)
		return
	}

	if err := b.sessions.Update(uid, func(s *session.Session) { s.Folders = list }); err != nil {
		b.edit(m.Chat.ID, msg.MessageID, textExpired(), nil)
		return
	}
	b.showPage(m.Chat.ID, msg.MessageID, uid, caption, list, 0)
}

func (b *Bot) showPage(chatID int64, messageID int, uid int64, caption string, list []folders.Folder, page int) {
	kb, page := folderKeyboard(uid, list, page, b.pageSize)
	pages := pageCount(len(list), b.pageSize)
	b.edit(chatID, messageID, textSelectFolder(caption, page, pages), &kb)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	cb, err := parseCallback(q.Data)
	if err != nil {
		b.request(tgbotapi.NewCallback(q.ID, ""))
		b.logger.Debug("Ignoring callback", zap.Error(err))
		return
	}
	if q.Message == nil || q.Message.Chat == nil || q.From == nil {
		b.request(tgbotapi.NewCallback(q.ID, ""))
		return
	}
	if q.From.ID != cb.UserID {
		b.request(tgbotapi.NewCallbackWithAlert(q.ID, "This selection belongs to someone else."))
		return
	}
	chatID, messageID := q.Message.Chat.ID, q.Message.MessageID

	switch cb.Action {
	case actionPage:
		b.request(tgbotapi.NewCallback(q.ID, ""))
		page, err := strconv.Atoi(cb.Arg)
		if err != nil {
			return
		}
		s, ok := b.sessions.Get(cb.UserID)
		if !ok {
			b.edit(chatID, messageID, textExpired(), nil)
			return
		}
		b.showPage(chatID, messageID, cb.UserID, s.Title, s.Folders, page)

	case actionCancel:
		b.request(tgbotapi.NewCallback(q.ID, ""))
		if s, ok := b.sessions.Get(cb.UserID); ok && s.Busy {
			return
		}
		b.sessions.Delete(cb.UserID)
		b.edit(chatID, messageID, textCancelled(), nil)

	case actionChoose:
		b.choose(ctx, q, cb, chatID, messageID)
	}
}

func (b *Bot) choose(ctx context.Context, q *tgbotapi.CallbackQuery, cb callback, chatID int64, messageID int) {
	s, err := b.sessions.Claim(cb.UserID)
	switch {
	case errors.Is(err, session.ErrBusy):
		b.request(tgbotapi.NewCallbackWithAlert(q.ID, "⏳ "+err.Error()))
		return
	case err != nil:
		b.request(tgbotapi.NewCallback(q.ID, ""))
		b.edit(chatID, messageID, textExpired(), nil)
		return
	}
	b.request(tgbotapi.NewCallback(q.ID, ""))
	defer b.sessions.Delete(cb.UserID)

	folder, ok := folders.Lookup(s.Folders, cb.Arg)
	if !ok {
		b.edit(chatID, messageID, textExpired(), nil)
		return
	}

	log := b.logger.With(zap.Int64("user", cb.UserID), zap.String("url", s.URL), zap.String("folder", folder.Path))
	log.Info("Folder chosen")

	if b.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.jobTimeout)
		defer cancel()
	}

	rep := pipeline.Throttle(&chatReporter{bot: b, chatID: chatID, messageID: messageID, folder: folder.Path}, b.progressInterval)
	out, err := b.runner.Run(ctx, pipeline.Job{URL: s.URL, FolderID: folder.ID, FolderPath: folder.Path}, rep)
	if err != nil {
		log.Error("Upload flow failed", zap.Error(err))
		b.edit(chatID, messageID, textFailed(err), nil)
		return
	}
	b.edit(chatID, messageID, textDone(out.FileName), nil)
}

func newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return msg
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = b.send(newMessage(chatID, text))
}

// edit replaces the text of a message; a nil keyboard removes the buttons.
func (b *Bot) edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var cfg tgbotapi.EditMessageTextConfig
	if kb != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *kb)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(cfg); err != nil {
		b.logger.Debug("Edit failed", zap.Int("message", messageID), zap.Error(err))
	}
}

// chatReporter mirrors job progress into the status message.
type chatReporter struct {
	bot       *Bot
	chatID    int64
	messageID int
	folder    string
}

func (r *chatReporter) Stage(s pipeline.Stage) {
	switch s {
	case pipeline.StageDownloading:
		r.bot.edit(r.chatID, r.messageID, textDownloading(0), nil)
	case pipeline.StageUploading:
		r.bot.edit(r.chatID, r.messageID, textUploading(r.folder, 0), nil)
	}
}

func (r *chatReporter) Progress(s pipeline.Stage, percent float64) {
	switch s {
	case pipeline.StageDownloading:
		r.bot.edit(r.chatID, r.messageID, textDownloading(percent), nil)
	case pipeline.StageConverting:
		r.bot.edit(r.chatID, r.messageID, textConverting(), nil)
	case pipeline.StageUploading:
		r.bot.edit(r.chatID, r.messageID, textUploading(r.folder, percent), nil)
	}
}
