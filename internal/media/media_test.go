package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line  string
		ok    bool
		stage string
		pct   float64
	}{
		{"[download]  42.3% of 3.12MiB at 1.02MiB/s ETA 00:02", true, "downloading", 42.3},
		{"[download] 100% of 3.12MiB in 00:03", true, "downloading", 100},
		{"[ExtractAudio] Destination: temp/x.mp3", true, "converting", 0},
		{"[youtube] abc: Downloading webpage", false, "", 0},
		{"/tmp/out/song.mp3", false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p, ok := ParseProgress(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.stage, p.Stage)
			assert.InDelta(t, tt.pct, p.Percent, 0.001)
		})
	}
}

func TestArgs(t *testing.T) {
	d := NewDownloader(Options{CookiesFile: "cookies.txt"}, nil)
	args := d.Args("https://youtu.be/x", "jobdir")

	assert.Equal(t, []string{"-f", "bestaudio/best"}, args[:2])
	assert.Contains(t, args, filepath.Join("jobdir", "%(title)s.%(ext)s"))
	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--no-check-certificates")
	assert.Contains(t, args, "192K")
	assert.Contains(t, args, "cookies.txt")
	assert.Equal(t, "https://youtu.be/x", args[len(args)-1])
}

func TestFindOutput(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "old.mp3")
	newer := filepath.Join(dir, "new.MP3")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.webp"), []byte("c"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	t.Run("printed path wins", func(t *testing.T) {
		got, err := findOutput(dir, []string{"noise", older}, ".mp3")
		require.NoError(t, err)
		assert.Equal(t, older, got)
	})

	t.Run("newest mp3 otherwise", func(t *testing.T) {
		got, err := findOutput(dir, []string{filepath.Join(dir, "gone.mp3")}, ".mp3")
		require.NoError(t, err)
		assert.Equal(t, newer, got)
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := findOutput(t.TempDir(), nil, ".mp3")
		assert.ErrorIs(t, err, ErrNoOutput)
	})
}

const fakeYtdlp = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
dir=$(dirname "$out")
echo "[youtube] abc: Downloading webpage"
echo "[download]  50.0% of 1.00MiB"
echo "[download] 100.0% of 1.00MiB"
echo "audio" > "$dir/Test Song.mp3"
echo "$dir/Test Song.mp3"
`

const failingYtdlp = `#!/bin/sh
echo "WARNING: something odd" >&2
echo "ERROR: Unsupported URL: https://example.com" >&2
exit 1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestDownload(t *testing.T) {
	bin := writeScript(t, fakeYtdlp)
	d := NewDownloader(Options{Binary: bin, Dir: t.TempDir()}, zaptest.NewLogger(t))

	var got []Progress
	res, err := d.Download(context.Background(), "https://youtu.be/abc", func(p Progress) {
		got = append(got, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "Test Song", res.Title)
	assert.FileExists(t, res.Path)
	assert.Equal(t, []Progress{{Stage: "downloading", Percent: 50}, {Stage: "downloading", Percent: 100}}, got)

	require.NoError(t, d.Cleanup(res))
	assert.NoDirExists(t, filepath.Dir(res.Path))
}

func TestDownload_Failure(t *testing.T) {
	bin := writeScript(t, failingYtdlp)
	root := t.TempDir()
	d := NewDownloader(Options{Binary: bin, Dir: root}, zaptest.NewLogger(t))

	_, err := d.Download(context.Background(), "https://example.com", nil)
	require.Error(t, err)
	assert.Equal(t, "yt-dlp: Unsupported URL: https://example.com", err.Error())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "job directory should be removed on failure")
}

func TestDownload_MissingBinary(t *testing.T) {
	d := NewDownloader(Options{Binary: filepath.Join(t.TempDir(), "nope"), Dir: t.TempDir()}, nil)
	_, err := d.Download(context.Background(), "https://youtu.be/abc", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}

func TestCleanup_PlainFile(t *testing.T) {
	d := NewDownloader(Options{}, nil)
	path := filepath.Join(t.TempDir(), "x.mp3")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, d.Cleanup(Result{Path: path}))
	assert.NoFileExists(t, path)
	assert.NoError(t, d.Cleanup(Result{Path: path}))
}
