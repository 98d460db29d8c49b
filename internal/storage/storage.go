// Package storage talks to the cloud storage account that receives uploads.
package storage

import (
	"context"
	"errors"
	"fmt"

	"megadrop/internal/folders"
)

var ErrNotFound = errors.New("folder not found")

// Client is the subset of a cloud storage provider the bot needs.
type Client interface {
	// Nodes returns the flat listing of every node in the account.
	Nodes(ctx context.Context) ([]folders.Node, error)
	// Upload stores localPath inside the folder identified by folderID and
	// returns the id of the new remote node. progress may be nil.
	Upload(ctx context.Context, localPath, folderID string, progress func(sent, total int64)) (string, error)
}

// Folders lists the account and projects it into a sorted folder tree.
func Folders(ctx context.Context, c Client) ([]folders.Folder, error) {
	nodes, err := c.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return folders.Build(nodes), nil
}
