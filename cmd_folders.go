package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"megadrop/internal/storage"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders of the MEGA account",
	Args:  cobra.NoArgs,
	RunE:  runFolders,
}

func runFolders(cmd *cobra.Command, args []string) error {
	a := newApp(cfg, logger)
	list, err := storage.Folders(cmd.Context(), a.storage)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No MEGA folders found.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"#", "Path", "ID"})
	table.SetAutoWrapText(false)
	for i, f := range list {
		table.Append([]string{strconv.Itoa(i + 1), f.Path, f.ID})
	}
	table.Render()
	return nil
}
