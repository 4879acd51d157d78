package persona

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/haibuddy/internal/core/llm"
)

const rewriteMaxTokens = 400

// Rewriter は中間回答をHAI Buddyの話し方へ書き換える
// 書き換えは事実を変えない整形であり、失敗した場合は中間回答をそのまま返す
type Rewriter struct {
	client llm.Client
	logger *slog.Logger
}

type RewriterOption func(*Rewriter)

// WithRewriterLogger はロガーを設定する
func WithRewriterLogger(logger *slog.Logger) RewriterOption {
	return func(r *Rewriter) {
		r.logger = logger
	}
}

// NewRewriter は新しいRewriterを作成する
func NewRewriter(client llm.Client, opts ...RewriterOption) *Rewriter {
	r := &Rewriter{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite は中間回答を質問のレジスタに合わせた口調へ書き換える
// 事実の追加・削除は指示で禁止し、書き換えに失敗した場合は元の回答を返す
func (r *Rewriter) Rewrite(ctx context.Context, question, intermediate string) string {
	if intermediate == "" {
		return intermediate
	}

	register := DetectRegister(question)
	tone := "natural, friendly English"
	if register == RegisterHinglish {
		tone = "casual Hinglish, the way a helpful Indian study buddy talks"
	}

	system := fmt.Sprintf(`You are HAI Buddy, a friendly teaching assistant for an AI engineering course.

Rewrite the answer below in %s.
Rules:
- Keep every fact exactly as given. Do not add or remove information.
- Be short and conversational. No emojis, no filler phrases.
- If the answer says the information is not in the transcripts, keep that meaning.`, tone)

	prompt := fmt.Sprintf("Student question: %s\n\nAnswer to rewrite:\n%s", question, intermediate)

	rewritten, err := r.client.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   rewriteMaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		r.logger.Warn("ペルソナ書き換えに失敗したため中間回答をそのまま返す", slog.String("error", err.Error()))
		return intermediate
	}
	if rewritten == "" {
		return intermediate
	}
	return rewritten
}
