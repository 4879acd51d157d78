package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jinford/haibuddy/internal/core/chunk"
	"github.com/jinford/haibuddy/internal/core/vecindex"
)

// Source はトランスクリプトの取得元を表す
type Source interface {
	// Name は取得元の名前を返す（ログ用）
	Name() string

	// List は利用可能なトランスクリプトID一覧を返す
	List(ctx context.Context) ([]string, error)

	// Fetch は指定トランスクリプトの全文を返す
	Fetch(ctx context.Context, id string) (string, error)
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// EmbedMany は複数テキストのEmbeddingをまとめて生成する
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)

	// MaxBatchSize は1回の呼び出しで処理できる最大件数を返す
	MaxBatchSize() int
}

// SourceFailure は1トランスクリプトの処理失敗を表す
type SourceFailure struct {
	TranscriptID string
	Err          error
}

// Result はインデックス化処理の集計結果を表す
type Result struct {
	FilesIndexed  int
	ChunksIndexed int
	Failures      []SourceFailure
	Duration      time.Duration
}

// Service はトランスクリプトのインデックス化パイプラインを提供する
// 取得 -> 分割 -> Embedding -> 索引挿入を駆動し、1件の失敗で全体を止めない
type Service struct {
	index       vecindex.Index
	source      Source
	embedder    Embedder
	splitter    *chunk.Splitter
	collection  string
	parallelism int
	logger      *slog.Logger

	// コレクション書き込みの単一ライター規律
	// インデックス化は運用者が起動するバッチ処理であり、1コレクションに
	// 同時に複数の書き込み系列を走らせない
	writeMu sync.Mutex
}

type serviceOptions struct {
	collection  string
	parallelism int
	logger      *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithCollection は書き込み先コレクション名を上書きする
func WithCollection(name string) ServiceOption {
	return func(o *serviceOptions) {
		o.collection = name
	}
}

// WithParallelism はトランスクリプト処理の並列数を上書きする
func WithParallelism(n int) ServiceOption {
	return func(o *serviceOptions) {
		o.parallelism = n
	}
}

// NewService は新しいServiceを作成する
func NewService(
	index vecindex.Index,
	source Source,
	embedder Embedder,
	splitter *chunk.Splitter,
	opts ...ServiceOption,
) *Service {
	options := serviceOptions{
		collection:  "transcripts",
		parallelism: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.parallelism <= 0 {
		options.parallelism = 1
	}

	return &Service{
		index:       index,
		source:      source,
		embedder:    embedder,
		splitter:    splitter,
		collection:  options.collection,
		parallelism: options.parallelism,
		logger:      options.logger,
	}
}

// Ingest はソースの全トランスクリプトをインデックス化する
// 同一入力に対して何度実行しても索引の状態は変わらない（冪等）
func (s *Service) Ingest(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	ids, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	s.logger.Info("インデックス化を開始",
		"source", s.source.Name(),
		"collection", s.collection,
		"transcripts", len(ids),
	)

	if err := s.index.EnsureCollection(ctx, s.collection); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for _, id := range ids {
		g.Go(func() error {
			chunks, err := s.ingestOne(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// 1トランスクリプトの失敗は集計して処理を続ける
				s.logger.Error("トランスクリプトのインデックス化に失敗",
					"transcript", id,
					"error", err,
				)
				result.Failures = append(result.Failures, SourceFailure{TranscriptID: id, Err: err})
				return nil
			}
			result.FilesIndexed++
			result.ChunksIndexed += chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 集計順を安定させる
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].TranscriptID < result.Failures[j].TranscriptID
	})

	result.Duration = time.Since(startTime)
	s.logger.Info("インデックス化が完了",
		"filesIndexed", result.FilesIndexed,
		"chunksIndexed", result.ChunksIndexed,
		"failures", len(result.Failures),
		"duration", result.Duration.String(),
	)

	return &result, nil
}

// ingestOne は1トランスクリプトを処理し、挿入したチャンク数を返す
func (s *Service) ingestOne(ctx context.Context, id string) (int, error) {
	text, err := s.source.Fetch(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transcript: %w", err)
	}

	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		// 空のトランスクリプトはエラーにせず0件として扱う
		s.logger.Warn("空のトランスクリプトをスキップ", "transcript", id)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := s.embedMany(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	records := make([]vecindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vecindex.Record{
			ID:           uuid.New(),
			TranscriptID: id,
			Ordinal:      c.Ordinal,
			Content:      c.Content,
			Embedding:    embeddings[i],
		}
	}

	// 旧チャンクの削除と挿入をひとまとまりの書き込みとして直列化する
	// レコードは (transcript, ordinal) でキー付けされるため上書き挿入も安全だが、
	// 前回より短くなったトランスクリプトの残骸は削除でしか消えない
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.index.DeleteTranscript(ctx, s.collection, id); err != nil {
		return 0, fmt.Errorf("failed to delete stale chunks: %w", err)
	}
	if err := s.index.Upsert(ctx, s.collection, records); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	s.logger.Info("トランスクリプトをインデックス化",
		"transcript", id,
		"chunks", len(records),
	)

	return len(records), nil
}

// embedMany はEmbedderのバッチ上限を守りながら全チャンクを埋め込む
func (s *Service) embedMany(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedder.EmbedMany(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}
