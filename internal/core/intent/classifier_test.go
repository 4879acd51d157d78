package intent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/haibuddy/internal/core/llm"
)

type stubClient struct {
	out string
	err error

	lastRequest llm.CompletionRequest
}

func (c *stubClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	c.lastRequest = req
	return c.out, c.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify_KnownLabels(t *testing.T) {
	tests := []struct {
		output string
		want   Intent
	}{
		{"retrieval", Retrieval},
		{"general_knowledge", GeneralKnowledge},
		{"code_help", CodeHelp},
		{"notes", Notes},
		{"memory", Memory},
		{"  Retrieval \n", Retrieval}, // whitespace and casing normalized
		{"CODE_HELP", CodeHelp},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			c := NewClassifier(&stubClient{out: tt.output}, WithClassifierLogger(testLogger()))
			got := c.Classify(context.Background(), "what do agents use?")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_UnknownLabelFallsBackToDefault(t *testing.T) {
	c := NewClassifier(&stubClient{out: "web_search"}, WithClassifierLogger(testLogger()))
	got := c.Classify(context.Background(), "how do I install docker?")
	assert.Equal(t, DefaultIntent, got)
}

func TestClassify_GeneratorErrorFallsBackToDefault(t *testing.T) {
	c := NewClassifier(&stubClient{err: errors.New("quota exceeded")}, WithClassifierLogger(testLogger()))
	got := c.Classify(context.Background(), "anything")
	assert.Equal(t, DefaultIntent, got)
}

func TestClassify_UsesDeterministicTemperature(t *testing.T) {
	client := &stubClient{out: "notes"}
	c := NewClassifier(client, WithClassifierLogger(testLogger()))
	c.Classify(context.Background(), "give me study notes")

	assert.Zero(t, client.lastRequest.Temperature)
	assert.Equal(t, 10, client.lastRequest.MaxTokens)
}
