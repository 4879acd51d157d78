package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		overlap   int
	}{
		{"zero max tokens", 0, 0},
		{"negative max tokens", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max", 100, 100},
		{"overlap exceeds max", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.maxTokens, tt.overlap)
			require.Error(t, err)
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s, err := NewSplitter(300, 50)
	require.NoError(t, err)

	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_ShortInputProducesSingleChunk(t *testing.T) {
	s, err := NewSplitter(300, 50)
	require.NoError(t, err)

	text := "Video 1: intro to agents. Agents use tools to act on the environment."
	chunks := s.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, text, chunks[0].Content)
	assert.LessOrEqual(t, chunks[0].Tokens, 300)
}

func TestSplit_CoverageWithoutOverlap(t *testing.T) {
	s, err := NewSplitter(20, 0)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	// without overlap, concatenating chunk contents must reconstruct the input
	var sb strings.Builder
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.LessOrEqual(t, c.Tokens, 20)
		sb.WriteString(c.Content)
	}
	assert.Equal(t, text, sb.String())
}

func TestSplit_CoverageWithOverlap(t *testing.T) {
	const (
		maxTokens = 20
		overlap   = 6
	)
	s, err := NewSplitter(maxTokens, overlap)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	tokens := s.encoder.Encode(text, nil, nil)

	// each chunk after the first starts with the previous chunk's trailing
	// overlap tokens; stripping that prefix and concatenating must
	// reconstruct the input exactly
	var sb strings.Builder
	start := 0
	for i, c := range chunks {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		if i == 0 {
			sb.WriteString(c.Content)
		} else {
			prefix := s.encoder.Decode(tokens[start : start+overlap])
			require.True(t, strings.HasPrefix(c.Content, prefix), "chunk %d missing overlap prefix", i)
			sb.WriteString(c.Content[len(prefix):])
		}

		start = end - overlap
	}
	assert.Equal(t, text, sb.String())
}

func TestSplit_ChunkCountMonotonicInOverlap(t *testing.T) {
	text := strings.Repeat("agents use tools to act on the environment ", 50)

	prev := 0
	for _, overlap := range []int{0, 5, 10, 19} {
		s, err := NewSplitter(20, overlap)
		require.NoError(t, err)

		n := len(s.Split(text))
		assert.GreaterOrEqual(t, n, prev, "overlap=%d", overlap)
		prev = n
	}
}

func TestSplit_EveryChunkWithinBudget(t *testing.T) {
	s, err := NewSplitter(30, 10)
	require.NoError(t, err)

	text := strings.Repeat("retrieval augmented generation over course transcripts ", 40)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, c.Tokens, 30)
		assert.NotEmpty(t, c.Content)
	}
	// the final chunk carries whatever remains, all others are full windows
	for _, c := range chunks[:len(chunks)-1] {
		assert.Equal(t, 30, c.Tokens)
	}
}
