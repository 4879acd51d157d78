package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/haibuddy/internal/core/llm"
	"github.com/jinford/haibuddy/internal/core/vecindex"
)

type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubClient struct {
	lastRequest llm.CompletionRequest
	answer      string
}

func (s *stubClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.lastRequest = req
	return s.answer, nil
}

// stubSearchIndex は固定の検索結果を返すvecindex.Index実装
type stubSearchIndex struct {
	hits []vecindex.Hit
}

func (s *stubSearchIndex) EnsureCollection(ctx context.Context, name string) error {
	return nil
}

func (s *stubSearchIndex) Upsert(ctx context.Context, collection string, records []vecindex.Record) error {
	return nil
}

func (s *stubSearchIndex) Search(ctx context.Context, collection string, vector []float32, k int) ([]vecindex.Hit, error) {
	if len(s.hits) > k {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func (s *stubSearchIndex) DeleteTranscript(ctx context.Context, collection, transcriptID string) error {
	return nil
}

type stubRecaller struct {
	recalled string
	err      error
}

func (s *stubRecaller) Recall(ctx context.Context, query string) (string, error) {
	return s.recalled, s.err
}

func TestRetrievalTool_Invoke_EmptySearchReturnsNoContextMessage(t *testing.T) {
	client := &stubClient{answer: "should not be used"}
	tool := NewRetrievalTool(&stubSearchIndex{}, &stubEmbedder{}, client, "transcripts", 3)

	answer, err := tool.Invoke(context.Background(), "what is docker?")

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage, answer)
	assert.Empty(t, client.lastRequest.Prompt, "generator should not be called without context")
}

func TestRetrievalTool_Invoke_GroundsPromptInHits(t *testing.T) {
	index := &stubSearchIndex{hits: []vecindex.Hit{
		{TranscriptID: "video1", Content: "Agents use tools to act.", Score: 0.9},
		{TranscriptID: "video2", Content: "Docker packages applications.", Score: 0.4},
	}}
	client := &stubClient{answer: "Agents act through tools."}
	tool := NewRetrievalTool(index, &stubEmbedder{}, client, "transcripts", 3)

	answer, err := tool.Invoke(context.Background(), "how do agents act?")

	require.NoError(t, err)
	assert.Equal(t, "Agents act through tools.", answer)
	assert.Contains(t, client.lastRequest.System, "Agents use tools to act.")
	assert.Contains(t, client.lastRequest.System, "Docker packages applications.")
	assert.Equal(t, "how do agents act?", client.lastRequest.Prompt)
}

func TestNotesTool_Invoke_SummarizesRetrievedMaterial(t *testing.T) {
	index := &stubSearchIndex{hits: []vecindex.Hit{
		{TranscriptID: "video1", Content: "Kubernetes schedules containers.", Score: 0.8},
	}}
	client := &stubClient{answer: "- Kubernetes schedules containers."}
	tool := NewNotesTool(index, &stubEmbedder{}, client, "transcripts", 3)

	answer, err := tool.Invoke(context.Background(), "notes on kubernetes")

	require.NoError(t, err)
	assert.Equal(t, "- Kubernetes schedules containers.", answer)
	assert.Contains(t, client.lastRequest.Prompt, "Kubernetes schedules containers.")
	assert.Contains(t, client.lastRequest.Prompt, "notes on kubernetes")
}

func TestMemoryTool_Invoke_EmptyRecallReturnsFixedMessage(t *testing.T) {
	tool := NewMemoryTool(&stubRecaller{recalled: ""})

	answer, err := tool.Invoke(context.Background(), "what did I ask before?")

	require.NoError(t, err)
	assert.Equal(t, NothingRememberedMessage, answer)
}

func TestMemoryTool_Invoke_ReturnsRecalledTurn(t *testing.T) {
	recalled := "User said: what is docker?\nAssistant replied: a container runtime"
	tool := NewMemoryTool(&stubRecaller{recalled: recalled})

	answer, err := tool.Invoke(context.Background(), "what did I ask about docker?")

	require.NoError(t, err)
	assert.Equal(t, recalled, answer)
}
