package media

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "", "*", "", "?", "",
	"\"", "", "<", "", ">", "", "|", "",
)

// SanitizeFilename makes s safe to use as a file name on common filesystems.
func SanitizeFilename(s string) string {
	s = norm.NFC.String(s)
	s = filenameReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.Trim(s, ". ")
}

func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
