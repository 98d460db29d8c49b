// Package pipeline runs one download-and-upload job.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"megadrop/internal/media"
	"megadrop/internal/storage"
	"megadrop/internal/worker"
)

type Stage int

const (
	StageDownloading Stage = iota + 1
	StageConverting
	StageUploading
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageDownloading:
		return "downloading"
	case StageConverting:
		return "converting"
	case StageUploading:
		return "uploading"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Reporter is told about stage changes and progress within a stage. It may
// be called from several goroutines.
type Reporter interface {
	Stage(s Stage)
	Progress(s Stage, percent float64)
}

type Downloader interface {
	Download(ctx context.Context, url string, progress func(media.Progress)) (media.Result, error)
	Cleanup(r media.Result) error
}

type Job struct {
	URL        string
	FolderID   string
	FolderPath string
}

type Outcome struct {
	FileName string
	Title    string
	RemoteID string
}

type Runner struct {
	Downloader Downloader
	Storage    storage.Client
	Pool       *worker.Pool
	Logger     *zap.Logger
}

// Run downloads job.URL as audio and uploads it to job.FolderID. The local
// file is removed whatever the outcome.
func (r *Runner) Run(ctx context.Context, job Job, rep Reporter) (Outcome, error) {
	if rep == nil {
		rep = nopReporter{}
	}
	log := r.logger().With(zap.String("url", job.URL), zap.String("folder", job.FolderPath))

	rep.Stage(StageDownloading)
	var res media.Result
	err := r.Pool.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = r.Downloader.Download(ctx, job.URL, func(p media.Progress) {
			if p.Stage == "converting" {
				rep.Progress(StageConverting, p.Percent)
				return
			}
			rep.Progress(StageDownloading, p.Percent)
		})
		return err
	})
	if err != nil {
		log.Warn("Download failed", zap.Error(err))
		return Outcome{}, fmt.Errorf("download: %w", err)
	}
	defer func() {
		if err := r.Downloader.Cleanup(res); err != nil {
			log.Warn("Cleanup failed", zap.String("file", res.Path), zap.Error(err))
		}
	}()

	rep.Stage(StageUploading)
	var remoteID string
	err = r.Pool.Do(ctx, func(ctx context.Context) error {
		var err error
		remoteID, err = r.Storage.Upload(ctx, res.Path, job.FolderID, func(sent, total int64) {
			if total > 0 {
				rep.Progress(StageUploading, float64(sent)*100/float64(total))
			}
		})
		return err
	})
	if err != nil {
		log.Warn("Upload failed", zap.Error(err))
		return Outcome{}, fmt.Errorf("upload: %w", err)
	}

	rep.Stage(StageDone)
	out := Outcome{FileName: filepath.Base(res.Path), Title: res.Title, RemoteID: remoteID}
	log.Info("Job finished", zap.String("file", out.FileName), zap.String("remote", remoteID))
	return out, nil
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

type nopReporter struct{}

func (nopReporter) Stage(Stage)             {}
func (nopReporter) Progress(Stage, float64) {}
