package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jinford/haibuddy/internal/core/llm"
	"github.com/jinford/haibuddy/internal/core/vecindex"
)

// DurableMemory はベクトル索引に裏打ちされた長期会話メモリを提供する
// ターンを埋め込んで保存し、想起は類似度による最良1件のみを返す
type DurableMemory struct {
	index      vecindex.Index
	embedder   llm.Embedder
	collection string
	minScore   float64
	logger     *slog.Logger
}

type durableOptions struct {
	collection string
	minScore   float64
	logger     *slog.Logger
}

// DurableOption は DurableMemory のオプション設定
type DurableOption func(*durableOptions)

// WithDurableLogger は DurableMemory にロガーを設定する
func WithDurableLogger(logger *slog.Logger) DurableOption {
	return func(o *durableOptions) {
		o.logger = logger
	}
}

// WithDurableCollection は保存先コレクション名を上書きする
func WithDurableCollection(name string) DurableOption {
	return func(o *durableOptions) {
		o.collection = name
	}
}

// WithRecallMinScore は想起を採用する最小類似度を設定する（0で無効）
func WithRecallMinScore(score float64) DurableOption {
	return func(o *durableOptions) {
		o.minScore = score
	}
}

// NewDurableMemory は新しいDurableMemoryを作成する
func NewDurableMemory(index vecindex.Index, embedder llm.Embedder, opts ...DurableOption) *DurableMemory {
	options := durableOptions{
		collection: "memory",
		minScore:   0,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &DurableMemory{
		index:      index,
		embedder:   embedder,
		collection: options.collection,
		minScore:   options.minScore,
		logger:     options.logger,
	}
}

// Remember は1往復の会話を長期メモリに書き込む
func (m *DurableMemory) Remember(ctx context.Context, userMsg, assistantMsg string) error {
	text := fmt.Sprintf("User said: %s\nAssistant replied: %s", userMsg, assistantMsg)

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed memory turn: %w", err)
	}

	if err := m.index.EnsureCollection(ctx, m.collection); err != nil {
		return fmt.Errorf("failed to ensure memory collection: %w", err)
	}

	id := uuid.New()
	record := vecindex.Record{
		ID:           id,
		TranscriptID: id.String(), // ターンごとに独立した行として保存する
		Ordinal:      0,
		Content:      text,
		Embedding:    embedding,
	}
	if err := m.index.Upsert(ctx, m.collection, []vecindex.Record{record}); err != nil {
		return fmt.Errorf("failed to store memory turn: %w", err)
	}

	return nil
}

// Recall は問い合わせに最も近い過去の会話を返す
// 空のストアや閾値未満の一致は空文字列であり、エラーではない
func (m *DurableMemory) Recall(ctx context.Context, query string) (string, error) {
	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed recall query: %w", err)
	}

	hits, err := m.index.Search(ctx, m.collection, embedding, 1)
	if err != nil {
		return "", fmt.Errorf("memory search failed: %w", err)
	}
	if len(hits) == 0 {
		return "", nil
	}

	best := hits[0]
	if m.minScore > 0 && best.Score < m.minScore {
		m.logger.Info("長期メモリの一致が閾値未満のため破棄",
			"score", best.Score,
			"minScore", m.minScore,
		)
		return "", nil
	}

	return best.Content, nil
}
