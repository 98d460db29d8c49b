package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"megadrop/internal/media"
	"megadrop/internal/resolve"
)

const (
	textWelcome = "👋 *Welcome\\!*\n" +
		"Use `/uploadtomega <URL>` to save the audio of a video to a MEGA folder\\.\n" +
		"/cancel drops a pending selection\\."

	textUsage       = "⚠️ Usage: `/uploadtomega <YouTube URL>`"
	textUnknown     = "🤔 Unknown command\\. Try /help\\."
	textSelect      = "📁 *Select Folder:*"
	textUploadedFmt = "✅ *Done\\!*\nFile: `%s`"
)

var codeReplacer = strings.NewReplacer("\\", "\\\\", "`", "\\`")

// esc escapes plain text for MarkdownV2.
func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// code wraps s in an inline code span.
func code(s string) string {
	return "`" + codeReplacer.Replace(s) + "`"
}

func textFetching() string        { return esc("📂 Fetching MEGA folders... ⏳") }
func textNoFolders() string       { return esc("⚠️ No MEGA folders found.") }
func textExpired() string         { return esc("⚠️ Session expired.") }
func textCancelled() string       { return esc("Cancelled.") }
func textNoSession() string       { return esc("Nothing to cancel.") }
func textError(err error) string  { return esc("❌ Error: " + err.Error()) }
func textFailed(err error) string { return esc("❌ Failed: " + err.Error()) }

func textDone(fileName string) string {
	return fmt.Sprintf(textUploadedFmt, codeReplacer.Replace(fileName))
}

func textDownloading(percent float64) string {
	return esc("🎬 Downloading MP3... ⏳" + percentSuffix(percent))
}

func textConverting() string {
	return esc("🎛 Converting to MP3... ⏳")
}

func textUploading(path string, percent float64) string {
	return "☁️ Uploading to " + code(path) + esc("... ⏳"+percentSuffix(percent))
}

func percentSuffix(p float64) string {
	if p <= 0 {
		return ""
	}
	return fmt.Sprintf(" %.0f%%", p)
}

// describe renders "Artist - Title (mm:ss)" for whatever is known.
func describe(t resolve.Target) string {
	if t.Title == "" {
		return ""
	}
	line := t.Title
	if t.Artist != "" {
		line = t.Artist + " - " + line
	}
	if t.Duration > 0 {
		line += " (" + media.FormatDuration(int(t.Duration.Seconds())) + ")"
	}
	return line
}

// textSelectFolder heads the keyboard with what is about to be saved.
func textSelectFolder(caption string, page, pages int) string {
	var sb strings.Builder
	sb.WriteString(textSelect)
	if caption != "" {
		sb.WriteString("\n🎵 " + esc(caption))
	}
	if pages > 1 {
		sb.WriteString(esc(fmt.Sprintf("\nPage %d/%d", page+1, pages)))
	}
	return sb.String()
}
