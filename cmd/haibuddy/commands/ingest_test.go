package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/haibuddy/pkg/config"
)

func TestNewSource_DirKind(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Kind = "dir"
	cfg.Source.Location = t.TempDir()

	src, err := newSource(cfg)
	require.NoError(t, err)
	assert.Contains(t, src.Name(), "dir(")
}

func TestNewSource_GitKind(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Kind = "git"
	cfg.Source.Location = "https://github.com/example/course-transcripts.git"
	cfg.Source.GitDir = t.TempDir()
	cfg.Source.Subdir = "transcripts"

	src, err := newSource(cfg)
	require.NoError(t, err)
	assert.Contains(t, src.Name(), "git(")
}
