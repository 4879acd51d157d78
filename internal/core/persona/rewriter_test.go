package persona

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/haibuddy/internal/core/llm"
)

type stubClient struct {
	lastRequest llm.CompletionRequest
	answer      string
	err         error
}

func (s *stubClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.lastRequest = req
	return s.answer, s.err
}

func TestRewriter_Rewrite_ReturnsRewrittenAnswer(t *testing.T) {
	client := &stubClient{answer: "Agents basically act through tools."}
	rewriter := NewRewriter(client)

	got := rewriter.Rewrite(context.Background(), "how do agents act?", "Agents act through tools.")

	assert.Equal(t, "Agents basically act through tools.", got)
	assert.Contains(t, client.lastRequest.System, "HAI Buddy")
	assert.Contains(t, client.lastRequest.Prompt, "Agents act through tools.")
}

func TestRewriter_Rewrite_HinglishQuestionSelectsHinglishTone(t *testing.T) {
	client := &stubClient{answer: "Agents tools se kaam karte hain."}
	rewriter := NewRewriter(client)

	rewriter.Rewrite(context.Background(), "agents kaise kaam karte hai?", "Agents act through tools.")

	assert.Contains(t, client.lastRequest.System, "Hinglish")
}

func TestRewriter_Rewrite_FailureReturnsIntermediateUnchanged(t *testing.T) {
	client := &stubClient{err: errors.New("rate limited")}
	rewriter := NewRewriter(client)

	got := rewriter.Rewrite(context.Background(), "how do agents act?", "Agents act through tools.")

	assert.Equal(t, "Agents act through tools.", got)
}

func TestRewriter_Rewrite_EmptyIntermediatePassesThrough(t *testing.T) {
	client := &stubClient{answer: "should not be called"}
	rewriter := NewRewriter(client)

	got := rewriter.Rewrite(context.Background(), "question", "")

	assert.Empty(t, got)
	assert.Empty(t, client.lastRequest.Prompt)
}

func TestRewriter_Rewrite_EmptyRewriteFallsBackToIntermediate(t *testing.T) {
	client := &stubClient{answer: ""}
	rewriter := NewRewriter(client)

	got := rewriter.Rewrite(context.Background(), "question", "original answer")

	assert.Equal(t, "original answer", got)
}
