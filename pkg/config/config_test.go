package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			EmbeddingDimension: 1536,
		},
		Source: SourceConfig{
			Kind: "dir",
		},
		Chunking: ChunkingConfig{
			MaxTokens: 300,
			Overlap:   50,
		},
		Pipeline: PipelineConfig{
			TopK:               3,
			ToolTimeoutSeconds: 12,
		},
		Memory: MemoryConfig{
			SessionCap: 5,
		},
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "zero chunk size",
			mutate: func(c *Config) { c.Chunking.MaxTokens = 0 },
		},
		{
			name:   "negative overlap",
			mutate: func(c *Config) { c.Chunking.Overlap = -1 },
		},
		{
			name:   "overlap equal to chunk size",
			mutate: func(c *Config) { c.Chunking.Overlap = c.Chunking.MaxTokens },
		},
		{
			name:   "overlap larger than chunk size",
			mutate: func(c *Config) { c.Chunking.Overlap = c.Chunking.MaxTokens + 10 },
		},
		{
			name:   "zero embedding dimension",
			mutate: func(c *Config) { c.OpenAI.EmbeddingDimension = 0 },
		},
		{
			name:   "zero top k",
			mutate: func(c *Config) { c.Pipeline.TopK = 0 },
		},
		{
			name:   "zero tool timeout",
			mutate: func(c *Config) { c.Pipeline.ToolTimeoutSeconds = 0 },
		},
		{
			name:   "zero session cap",
			mutate: func(c *Config) { c.Memory.SessionCap = 0 },
		},
		{
			name:   "unknown source kind",
			mutate: func(c *Config) { c.Source.Kind = "s3" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_UsesEnvironmentOverrides(t *testing.T) {
	t.Setenv("CHUNK_MAX_TOKENS", "120")
	t.Setenv("CHUNK_OVERLAP", "15")
	t.Setenv("MEMORY_RECALL_MIN_SCORE", "0.4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Chunking.MaxTokens)
	assert.Equal(t, 15, cfg.Chunking.Overlap)
	assert.InDelta(t, 0.4, cfg.Memory.RecallMinScore, 1e-9)
}

func TestLoad_RejectsInvalidChunking(t *testing.T) {
	t.Setenv("CHUNK_MAX_TOKENS", "50")
	t.Setenv("CHUNK_OVERLAP", "50")

	_, err := Load("")
	assert.Error(t, err)
}
