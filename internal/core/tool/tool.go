package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinford/haibuddy/internal/core/llm"
	"github.com/jinford/haibuddy/internal/core/vecindex"
)

// Tool は質問に中間回答を返す実行単位を表す
// 実装は閉じた集合（retrieval / code help / notes / memory / general knowledge）で、
// ルーターの明示的な対応表からのみ呼ばれる
type Tool interface {
	// Name はツール名を返す（ログ・番兵メッセージ用）
	Name() string

	// Invoke は質問に対する中間回答を生成する
	Invoke(ctx context.Context, question string) (string, error)
}

// Recaller は長期メモリ想起のインターフェース
type Recaller interface {
	Recall(ctx context.Context, query string) (string, error)
}

const (
	// answerMaxTokens はツールが生成する中間回答の出力上限
	answerMaxTokens = 300

	// conversationalTemperature は回答生成に使う温度
	conversationalTemperature = 0.7

	// NoContextMessage は検索が0件だった場合の定型回答
	NoContextMessage = "I don't see this in the uploaded course transcripts."

	// NothingRememberedMessage は長期メモリに一致がない場合の定型回答
	NothingRememberedMessage = "We haven't talked about that yet, so there's nothing for me to recall."
)

// buildContext は検索結果を1つのコンテキストブロックにまとめる
func buildContext(hits []vecindex.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		parts = append(parts, hit.Content)
	}
	return "Relevant Course Transcript Chunks:\n\n" + strings.Join(parts, "\n\n")
}

// RetrievalTool はトランスクリプト検索に基づいて回答する
type RetrievalTool struct {
	index      vecindex.Index
	embedder   llm.Embedder
	client     llm.Client
	collection string
	topK       int
}

// NewRetrievalTool は新しいRetrievalToolを作成する
func NewRetrievalTool(index vecindex.Index, embedder llm.Embedder, client llm.Client, collection string, topK int) *RetrievalTool {
	if topK <= 0 {
		topK = 3
	}
	return &RetrievalTool{
		index:      index,
		embedder:   embedder,
		client:     client,
		collection: collection,
		topK:       topK,
	}
}

func (t *RetrievalTool) Name() string { return "rag_retrieval" }

// Invoke は質問を埋め込み、近傍チャンクのみを根拠に回答を生成する
// 検索0件はエラーではなく定型メッセージになる
func (t *RetrievalTool) Invoke(ctx context.Context, question string) (string, error) {
	queryVector, err := t.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := t.index.Search(ctx, t.collection, queryVector, t.topK)
	if err != nil {
		return "", fmt.Errorf("transcript search failed: %w", err)
	}
	if len(hits) == 0 {
		return NoContextMessage, nil
	}

	system := fmt.Sprintf(`You are a helpful AI tutor.

Use ONLY the following transcript context to answer the question.
If the answer is not present in the transcript, say:
%q

Context:
%s

Answer in clear bullet points where possible.`, NoContextMessage, buildContext(hits))

	answer, err := t.client.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Prompt:      question,
		MaxTokens:   answerMaxTokens,
		Temperature: conversationalTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate grounded answer: %w", err)
	}
	return answer, nil
}

// CodeHelpTool はプログラミングの説明・デバッグ支援を行う
type CodeHelpTool struct {
	client llm.Client
}

// NewCodeHelpTool は新しいCodeHelpToolを作成する
func NewCodeHelpTool(client llm.Client) *CodeHelpTool {
	return &CodeHelpTool{client: client}
}

func (t *CodeHelpTool) Name() string { return "code_helper" }

func (t *CodeHelpTool) Invoke(ctx context.Context, question string) (string, error) {
	answer, err := t.client.Complete(ctx, llm.CompletionRequest{
		System:      "You are a Python and cloud expert. Explain clearly and concisely.",
		Prompt:      question,
		MaxTokens:   answerMaxTokens,
		Temperature: conversationalTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("code help generation failed: %w", err)
	}
	return answer, nil
}

// NotesTool は検索したコース内容から学習ノートを生成する
type NotesTool struct {
	index      vecindex.Index
	embedder   llm.Embedder
	client     llm.Client
	collection string
	topK       int
}

// NewNotesTool は新しいNotesToolを作成する
func NewNotesTool(index vecindex.Index, embedder llm.Embedder, client llm.Client, collection string, topK int) *NotesTool {
	if topK <= 0 {
		topK = 3
	}
	return &NotesTool{
		index:      index,
		embedder:   embedder,
		client:     client,
		collection: collection,
		topK:       topK,
	}
}

func (t *NotesTool) Name() string { return "notes_generator" }

func (t *NotesTool) Invoke(ctx context.Context, question string) (string, error) {
	queryVector, err := t.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := t.index.Search(ctx, t.collection, queryVector, t.topK)
	if err != nil {
		return "", fmt.Errorf("transcript search failed: %w", err)
	}
	if len(hits) == 0 {
		return NoContextMessage, nil
	}

	prompt := fmt.Sprintf(`Summarize the following lecture material into 8-10 concise sentences of study notes:

---
%s
---

Focus on the topic of the request: %q`, buildContext(hits), question)

	answer, err := t.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   400,
		Temperature: conversationalTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("notes generation failed: %w", err)
	}
	return answer, nil
}

// MemoryTool は長期メモリから過去の会話を想起する
type MemoryTool struct {
	recaller Recaller
}

// NewMemoryTool は新しいMemoryToolを作成する
func NewMemoryTool(recaller Recaller) *MemoryTool {
	return &MemoryTool{recaller: recaller}
}

func (t *MemoryTool) Name() string { return "memory_recall" }

func (t *MemoryTool) Invoke(ctx context.Context, question string) (string, error) {
	recalled, err := t.recaller.Recall(ctx, question)
	if err != nil {
		return "", fmt.Errorf("memory recall failed: %w", err)
	}
	if recalled == "" {
		// 空文字列は「記憶なし」でありエラーではない
		return NothingRememberedMessage, nil
	}
	return recalled, nil
}

// GeneralKnowledgeTool は検索を介さず一般知識で回答する
type GeneralKnowledgeTool struct {
	client llm.Client
}

// NewGeneralKnowledgeTool は新しいGeneralKnowledgeToolを作成する
func NewGeneralKnowledgeTool(client llm.Client) *GeneralKnowledgeTool {
	return &GeneralKnowledgeTool{client: client}
}

func (t *GeneralKnowledgeTool) Name() string { return "general_knowledge" }

func (t *GeneralKnowledgeTool) Invoke(ctx context.Context, question string) (string, error) {
	answer, err := t.client.Complete(ctx, llm.CompletionRequest{
		System:      "Be a friendly, helpful study buddy.",
		Prompt:      question,
		MaxTokens:   answerMaxTokens,
		Temperature: conversationalTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("general knowledge generation failed: %w", err)
	}
	return answer, nil
}
