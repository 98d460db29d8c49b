// Package media fetches a URL with yt-dlp and extracts its audio track.
package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNoOutput = errors.New("MP3 output not found")

// Options configures the yt-dlp invocation. Dir is the parent of the
// per-job directories; Format and Quality feed --audio-format and
// --audio-quality.
type Options struct {
	Binary      string
	Dir         string
	Format      string
	Quality     string
	CookiesFile string
	ExtraArgs   []string
}

type Progress struct {
	Stage   string
	Percent float64
}

type Result struct {
	Path  string
	Title string
	dir   string
}

type Downloader struct {
	opts   Options
	logger *zap.Logger
}

func NewDownloader(opts Options, logger *zap.Logger) *Downloader {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.Dir == "" {
		opts.Dir = "temp_downloads"
	}
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	if opts.Quality == "" {
		opts.Quality = "192K"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{opts: opts, logger: logger}
}

// Args returns the yt-dlp argument list for fetching url into dir.
func (d *Downloader) Args(url, dir string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
		"--no-playlist",
		"--no-check-certificates",
		"-x",
		"--audio-format", d.opts.Format,
		"--audio-quality", d.opts.Quality,
		"--newline",
		"--progress",
		"--print", "after_move:filepath",
	}
	if d.opts.CookiesFile != "" {
		args = append(args, "--cookies", d.opts.CookiesFile)
	}
	args = append(args, d.opts.ExtraArgs...)
	return append(args, url)
}

// Download runs yt-dlp for url in a fresh job directory. The caller owns the
// returned file and should hand the Result to Cleanup when done with it.
func (d *Downloader) Download(ctx context.Context, url string, progress func(Progress)) (Result, error) {
	dir := filepath.Join(d.opts.Dir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create job dir: %w", err)
	}

	printed, err := d.run(ctx, d.Args(url, dir), progress)
	if err != nil {
		os.RemoveAll(dir)
		return Result{}, err
	}

	path, err := findOutput(dir, printed, "."+d.opts.Format)
	if err != nil {
		os.RemoveAll(dir)
		return Result{}, err
	}
	d.logger.Info("Audio extracted", zap.String("url", url), zap.String("file", path))
	return Result{
		Path:  path,
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		dir:   dir,
	}, nil
}

// Cleanup removes the job directory of r, or just the file when r was not
// produced by Download.
func (d *Downloader) Cleanup(r Result) error {
	if r.dir != "" {
		return os.RemoveAll(r.dir)
	}
	if r.Path == "" {
		return nil
	}
	if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Downloader) run(ctx context.Context, args []string, progress func(Progress)) ([]string, error) {
	cmd := exec.CommandContext(ctx, d.opts.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Starting yt-dlp", zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", d.opts.Binary, err)
	}

	var (
		wg      sync.WaitGroup
		printed []string
		lastErr string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		printed = d.scan(stdout, progress)
	}()
	go func() {
		defer wg.Done()
		lines := d.scan(stderr, progress)
		if len(lines) > 0 {
			lastErr = lines[len(lines)-1]
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if lastErr != "" {
			return nil, fmt.Errorf("yt-dlp: %s", strings.TrimPrefix(lastErr, "ERROR: "))
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	return printed, nil
}

// scan forwards progress lines and returns every other non-empty line.
func (d *Downloader) scan(r io.Reader, progress func(Progress)) []string {
	var rest []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if p, ok := ParseProgress(line); ok {
			if progress != nil {
				progress(p)
			}
			continue
		}
		d.logger.Debug("yt-dlp", zap.String("line", line))
		rest = append(rest, line)
	}
	return rest
}

var progressRe = regexp.MustCompile(`^\[(download|ExtractAudio)\]\s+(\d+(?:\.\d+)?)%`)

// ParseProgress recognises yt-dlp progress lines such as
// "[download]  42.3% of 3.12MiB at 1.02MiB/s ETA 00:02".
func ParseProgress(line string) (Progress, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		if strings.HasPrefix(line, "[ExtractAudio] Destination:") {
			return Progress{Stage: "converting"}, true
		}
		return Progress{}, false
	}
	pct, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Progress{}, false
	}
	stage := "downloading"
	if m[1] == "ExtractAudio" {
		stage = "converting"
	}
	return Progress{Stage: stage, Percent: pct}, true
}

// findOutput prefers a path yt-dlp printed; otherwise it picks the newest
// file with the wanted extension in dir.
func findOutput(dir string, printed []string, ext string) (string, error) {
	for i := len(printed) - 1; i >= 0; i-- {
		p := printed[i]
		if !strings.EqualFold(filepath.Ext(p), ext) {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path string
		mod  int64
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{filepath.Join(dir, e.Name()), info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return "", ErrNoOutput
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod > found[j].mod })
	return found[0].path, nil
}
