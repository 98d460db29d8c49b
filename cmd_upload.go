package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"megadrop/internal/folders"
	"megadrop/internal/pipeline"
	"megadrop/internal/storage"
)

var uploadFolder string

var uploadCmd = &cobra.Command{
	Use:   "upload <url>",
	Short: "Download the audio of a link and upload it to a MEGA folder",
	Long: `Runs the same flow as the bot from a terminal. Without --folder the
target folder is picked from an interactive list.

Example:
  megadrop upload https://youtu.be/dQw4w9WgXcQ --folder Music/Pop`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadFolder, "folder", "f", "", "destination folder path")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger)
	target, err := a.resolver.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	list, err := storage.Folders(ctx, a.storage)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("no MEGA folders found")
	}

	folder, err := pickFolder(list, uploadFolder)
	if err != nil {
		return err
	}

	out, err := a.runner.Run(ctx, pipeline.Job{URL: target.URL, FolderID: folder.ID, FolderPath: folder.Path},
		pipeline.Throttle(logReporter{logger}, cfg.ProgressInterval()))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Done! %s -> %s\n", out.FileName, folder.Path)
	return nil
}

// pickFolder matches path exactly or, when path is empty, asks the user.
func pickFolder(list []folders.Folder, path string) (folders.Folder, error) {
	if path != "" {
		for _, f := range list {
			if f.Path == path {
				return f, nil
			}
		}
		return folders.Folder{}, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}

	labels := folderLabels(list)
	var choice int
	if err := survey.AskOne(&survey.Select{
		Message:  "Select folder:",
		Options:  labels,
		PageSize: 15,
	}, &choice); err != nil {
		return folders.Folder{}, err
	}
	return list[choice], nil
}

// folderLabels disambiguates folders that share a path by appending the id.
func folderLabels(list []folders.Folder) []string {
	count := make(map[string]int, len(list))
	for _, f := range list {
		count[f.Path]++
	}
	labels := make([]string, len(list))
	for i, f := range list {
		labels[i] = f.Path
		if count[f.Path] > 1 {
			labels[i] = fmt.Sprintf("%s [%s]", f.Path, f.ID)
		}
	}
	return labels
}

type logReporter struct {
	logger *zap.Logger
}

func (r logReporter) Stage(s pipeline.Stage) {
	r.logger.Info("Stage", zap.Stringer("stage", s))
}

func (r logReporter) Progress(s pipeline.Stage, percent float64) {
	r.logger.Info("Progress", zap.Stringer("stage", s), zap.Float64("percent", percent))
}
