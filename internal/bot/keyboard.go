package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"megadrop/internal/folders"
)

// Telegram rejects callback data longer than this many bytes.
const maxCallbackData = 64

const (
	actionChoose = "choose"
	actionPage   = "page"
	actionCancel = "cancel"
)

type callback struct {
	Action string
	UserID int64
	Arg    string
}

func (c callback) String() string {
	s := c.Action + "|" + strconv.FormatInt(c.UserID, 10)
	if c.Arg != "" {
		s += "|" + c.Arg
	}
	return s
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return callback{}, fmt.Errorf("malformed callback %q", data)
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, fmt.Errorf("malformed callback user: %w", err)
	}
	c := callback{Action: parts[0], UserID: uid}
	if len(parts) == 3 {
		c.Arg = parts[2]
	}
	switch c.Action {
	case actionChoose, actionPage:
		if c.Arg == "" {
			return callback{}, fmt.Errorf("callback %q needs an argument", c.Action)
		}
	case actionCancel:
	default:
		return callback{}, fmt.Errorf("unknown callback action %q", c.Action)
	}
	return c, nil
}

func pageCount(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// folderKeyboard renders one button per folder on the given page plus
// navigation and a cancel button. page is clamped into range.
func folderKeyboard(userID int64, list []folders.Folder, page, size int) (tgbotapi.InlineKeyboardMarkup, int) {
	pages := pageCount(len(list), size)
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * size
	end := start + size
	if end > len(list) {
		end = len(list)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, f := range list[start:end] {
		data := callback{Action: actionChoose, UserID: userID, Arg: f.ID}.String()
		if len(data) > maxCallbackData {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📁 "+f.Path, data),
		))
	}

	if pages > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page > 0 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀",
				callback{Action: actionPage, UserID: userID, Arg: strconv.Itoa(page - 1)}.String()))
		}
		if page < pages-1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶",
				callback{Action: actionPage, UserID: userID, Arg: strconv.Itoa(page + 1)}.String()))
		}
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖ Cancel", callback{Action: actionCancel, UserID: userID}.String()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...), page
}
