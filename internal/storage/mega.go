package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	mega "github.com/t3rm1n4l/go-mega"
	"go.uber.org/zap"

	"megadrop/internal/folders"
)

// uploader is the part of *mega.Mega that pushes file contents. The
// progress channel receives chunk sizes and is closed when the upload ends.
type uploader interface {
	UploadFile(srcpath string, parent *mega.Node, name string, progress *chan int) (*mega.Node, error)
}

// Mega is a Client backed by a MEGA account with static credentials. The
// login happens on first use and the session is reused afterwards.
type Mega struct {
	email    string
	password string
	logger   *zap.Logger

	mu       sync.Mutex
	m        *mega.Mega
	loggedIn bool
}

func NewMega(email, password string, logger *zap.Logger) *Mega {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mega{email: email, password: password, logger: logger}
}

func (c *Mega) session() (*mega.Mega, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return c.m, nil
	}
	if c.email == "" || c.password == "" {
		return nil, errors.New("mega credentials are not configured")
	}
	m := mega.New()
	if err := m.Login(c.email, c.password); err != nil {
		return nil, fmt.Errorf("mega login: %w", err)
	}
	c.m = m
	c.loggedIn = true
	c.logger.Info("Logged in to MEGA", zap.String("email", c.email))
	return m, nil
}

// Nodes walks the filesystem tree from the root. The result is flat, with
// each node pointing at its parent by hash.
func (c *Mega) Nodes(ctx context.Context) ([]folders.Node, error) {
	m, err := c.session()
	if err != nil {
		return nil, err
	}
	root := m.FS.GetRoot()
	if root == nil {
		return nil, errors.New("mega: filesystem has no root")
	}

	var out []folders.Node
	var walk func(n *mega.Node, parent string) error
	walk = func(n *mega.Node, parent string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out = append(out, folders.Node{
			ID:       n.GetHash(),
			Name:     n.GetName(),
			ParentID: parent,
			Kind:     kindOf(n.GetType()),
		})
		children, err := m.FS.GetChildren(n)
		if err != nil {
			return fmt.Errorf("children of %q: %w", n.GetName(), err)
		}
		for _, child := range children {
			if err := walk(child, n.GetHash()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	c.logger.Debug("Listed MEGA nodes", zap.Int("nodes", len(out)))
	return out, nil
}

func kindOf(t int) folders.Kind {
	switch t {
	case mega.FOLDER:
		return folders.KindFolder
	case mega.ROOT:
		return folders.KindRoot
	case mega.INBOX:
		return folders.KindInbox
	case mega.TRASH:
		return folders.KindTrash
	default:
		return folders.KindFile
	}
}

// Upload sends the file in chunks; progress receives the running byte count.
func (c *Mega) Upload(ctx context.Context, localPath, folderID string, progress func(sent, total int64)) (string, error) {
	m, err := c.session()
	if err != nil {
		return "", err
	}
	parent := m.FS.HashLookup(folderID)
	if parent == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, folderID)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	node, err := uploadWithProgress(m, localPath, parent, info.Size(), progress)
	if err != nil {
		return "", err
	}
	return node.GetHash(), nil
}

func uploadWithProgress(api uploader, localPath string, parent *mega.Node, total int64, progress func(sent, total int64)) (*mega.Node, error) {
	ch := make(chan int)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		var sent int64
		for n := range ch {
			sent += int64(n)
			if progress != nil {
				progress(sent, total)
			}
		}
	}()

	node, err := api.UploadFile(localPath, parent, filepath.Base(localPath), &ch)
	<-drained
	if err != nil {
		return nil, fmt.Errorf("mega upload: %w", err)
	}
	if node == nil {
		return nil, errors.New("mega upload: no node returned")
	}
	return node, nil
}
