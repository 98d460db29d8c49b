// Package folders turns the flat node listing of a storage provider into
// selectable (path, id) pairs.
package folders

import (
	"sort"
	"strings"
)

type Kind int

const (
	KindFile Kind = iota
	KindFolder
	KindRoot
	KindInbox
	KindTrash
)

// Node is one entry of a provider listing. ParentID refers to another node's ID.
type Node struct {
	ID       string
	Name     string
	ParentID string
	Kind     Kind
}

type Folder struct {
	Path string
	ID   string
}

// Build keeps folder nodes and reconstructs each one's full path by walking
// parent links. Only folders contribute path segments, so children of the
// root come out as single-segment paths.
func Build(nodes []Node) []Folder {
	byID := make(map[string]Node)
	for _, n := range nodes {
		if n.Kind == KindFolder {
			byID[n.ID] = n
		}
	}

	seen := make(map[Folder]struct{})
	out := make([]Folder, 0, len(byID))
	for id, n := range byID {
		if n.Name == "" {
			continue
		}
		f := Folder{Path: pathOf(n, byID), ID: id}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func pathOf(n Node, byID map[string]Node) string {
	parts := []string{n.Name}
	visited := map[string]bool{n.ID: true}
	parent := n.ParentID
	for parent != "" && !visited[parent] {
		p, ok := byID[parent]
		if !ok {
			break
		}
		visited[parent] = true
		if p.Name != "" {
			parts = append(parts, p.Name)
		}
		parent = p.ParentID
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Lookup finds the folder with the given id.
func Lookup(list []Folder, id string) (Folder, bool) {
	for _, f := range list {
		if f.ID == id {
			return f, true
		}
	}
	return Folder{}, false
}
