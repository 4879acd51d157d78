package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/haibuddy/internal/core/llm"
)

// Intent は質問の目的カテゴリを表す
type Intent string

const (
	// Retrieval はコース・トランスクリプトに関する質問
	Retrieval Intent = "retrieval"
	// GeneralKnowledge はコース固有でない一般的なAI/ML/LLMの質問
	GeneralKnowledge Intent = "general_knowledge"
	// CodeHelp はコードの説明・修正に関する質問
	CodeHelp Intent = "code_help"
	// Notes はノート・要約・学習資料の依頼
	Notes Intent = "notes"
	// Memory は過去の会話内容に関する質問
	Memory Intent = "memory"
	// Fallback は判定不能な質問
	Fallback Intent = "fallback"
)

// DefaultIntent は分類に失敗した場合の既定ラベル
// 分類がパイプラインを止めることは決してない
const DefaultIntent = Retrieval

// All は既知のラベル全集合を返す
func All() []Intent {
	return []Intent{Retrieval, GeneralKnowledge, CodeHelp, Notes, Memory, Fallback}
}

// known は分類器の出力として受理するラベル集合
// Fallback はルーター側の安全網であり、分類器には出力させない
var known = map[Intent]bool{
	Retrieval:        true,
	GeneralKnowledge: true,
	CodeHelp:         true,
	Notes:            true,
	Memory:           true,
}

const classifyPrompt = `Classify the user question into one intent category.

Categories:
- retrieval: Questions about the course, its videos, transcripts, agent demos.
- general_knowledge: General AI / LLM / ML concepts not specific to the course.
- code_help: Explaining or fixing code, programming, workflows.
- notes: Asking for notes, summaries, study material.
- memory: Asking about earlier conversation context.

Respond ONLY with the intent name.

User question: %q`

// Classifier は質問を固定ラベル集合のいずれかに分類する
type Classifier struct {
	client llm.Client
	logger *slog.Logger
}

// ClassifierOption は Classifier のオプション設定
type ClassifierOption func(*Classifier)

// WithClassifierLogger は Classifier にロガーを設定する
func WithClassifierLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// NewClassifier は新しいClassifierを作成する
func NewClassifier(client llm.Client, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Classify は質問のIntentを返す
// 生成側の失敗や未知ラベルは DefaultIntent に丸め、エラーを返さない
func (c *Classifier) Classify(ctx context.Context, question string) Intent {
	out, err := c.client.Complete(ctx, llm.CompletionRequest{
		System:      "You are a precise classifier.",
		Prompt:      fmt.Sprintf(classifyPrompt, question),
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("intent分類に失敗したためデフォルトを使用",
			"error", err,
			"default", string(DefaultIntent),
		)
		return DefaultIntent
	}

	label := Intent(strings.ToLower(strings.TrimSpace(out)))
	if !known[label] {
		c.logger.Warn("未知のintentラベルのためデフォルトを使用",
			"label", string(label),
			"default", string(DefaultIntent),
		)
		return DefaultIntent
	}

	return label
}
