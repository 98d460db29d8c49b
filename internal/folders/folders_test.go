package folders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	nodes := []Node{
		{ID: "root", Name: "Cloud Drive", Kind: KindRoot},
		{ID: "trash", Name: "Rubbish Bin", Kind: KindTrash},
		{ID: "a", Name: "Music", ParentID: "root", Kind: KindFolder},
		{ID: "b", Name: "Rock", ParentID: "a", Kind: KindFolder},
		{ID: "c", Name: "Live", ParentID: "b", Kind: KindFolder},
		{ID: "d", Name: "Books", ParentID: "root", Kind: KindFolder},
		{ID: "f1", Name: "song.mp3", ParentID: "b", Kind: KindFile},
	}

	got := Build(nodes)
	assert.Equal(t, []Folder{
		{Path: "Books", ID: "d"},
		{Path: "Music", ID: "a"},
		{Path: "Music/Rock", ID: "b"},
		{Path: "Music/Rock/Live", ID: "c"},
	}, got)
}

func TestBuild_EdgeCases(t *testing.T) {
	t.Run("empty listing", func(t *testing.T) {
		got := Build(nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unnamed folders are skipped", func(t *testing.T) {
		got := Build([]Node{
			{ID: "a", Name: "", Kind: KindFolder},
			{ID: "b", Name: "Child", ParentID: "a", Kind: KindFolder},
		})
		assert.Equal(t, []Folder{{Path: "Child", ID: "b"}}, got)
	})

	t.Run("parent cycle terminates", func(t *testing.T) {
		got := Build([]Node{
			{ID: "a", Name: "A", ParentID: "b", Kind: KindFolder},
			{ID: "b", Name: "B", ParentID: "a", Kind: KindFolder},
		})
		assert.Equal(t, []Folder{{Path: "A/B", ID: "b"}, {Path: "B/A", ID: "a"}}, got)
	})

	t.Run("same path different ids sorted by id", func(t *testing.T) {
		got := Build([]Node{
			{ID: "z", Name: "Dup", Kind: KindFolder},
			{ID: "y", Name: "Dup", Kind: KindFolder},
		})
		assert.Equal(t, []Folder{{Path: "Dup", ID: "y"}, {Path: "Dup", ID: "z"}}, got)
	})

	t.Run("duplicate nodes collapse", func(t *testing.T) {
		got := Build([]Node{
			{ID: "a", Name: "A", Kind: KindFolder},
			{ID: "a", Name: "A", Kind: KindFolder},
		})
		assert.Len(t, got, 1)
	})
}

func TestLookup(t *testing.T) {
	list := []Folder{{Path: "Music", ID: "a"}, {Path: "Books", ID: "d"}}

	f, ok := Lookup(list, "d")
	require.True(t, ok)
	assert.Equal(t, "Books", f.Path)

	_, ok = Lookup(list, "missing")
	assert.False(t, ok)
}
