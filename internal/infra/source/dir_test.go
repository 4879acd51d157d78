package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirSource_List_OnlyTextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "video1.txt", "intro to agents")
	writeFile(t, dir, "video2.txt", "docker basics")
	writeFile(t, dir, "notes.md", "not a transcript")
	writeFile(t, dir, "week2/video3.txt", "kafka basics")

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	ids, err := src.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"video1.txt", "video2.txt", "week2/video3.txt"}, ids)
}

func TestDirSource_List_HonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "video1.txt", "intro to agents")
	writeFile(t, dir, "draft.txt", "unfinished")
	writeFile(t, dir, "scratch/wip.txt", "work in progress")
	writeFile(t, dir, IgnoreFileName, "# drafts are not course material\ndraft.txt\nscratch/\n")

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	ids, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"video1.txt"}, ids)
}

func TestDirSource_Fetch_ReturnsContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "video1.txt", "agents use tools")

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	content, err := src.Fetch(context.Background(), "video1.txt")
	require.NoError(t, err)
	assert.Equal(t, "agents use tools", content)
}

func TestDirSource_Fetch_RejectsBinaryFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "video1.txt", "audio\x00dump\x00\x00\xff")

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), "video1.txt")
	assert.ErrorContains(t, err, "binary")
}

func TestDirSource_Fetch_MissingTranscript(t *testing.T) {
	src, err := NewDirSource(t.TempDir())
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), "missing.txt")
	assert.Error(t, err)
}

func TestNewDirSource_RejectsMissingDirectory(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
