package vecindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrDimensionMismatch はベクトル次元がコレクションの確定次元と一致しない場合のエラー
	// 部分書き込みが起きる前に挿入境界で拒否される
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyVector は空ベクトルを検索・挿入しようとした場合のエラー
	ErrEmptyVector = errors.New("embedding vector is empty")

	// ErrCollectionNotFound は存在しないコレクションへの書き込みエラー
	ErrCollectionNotFound = errors.New("collection not found")
)

// DimensionError は次元不一致の詳細を保持する
type DimensionError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch in collection %q: want %d, got %d", e.Collection, e.Want, e.Got)
}

// Unwrap は ErrDimensionMismatch として判定可能にする
func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// Record はコレクションに格納するEmbeddingレコードを表す
// (TranscriptID, Ordinal) がコレクション内の論理キーとなり、
// 同一キーへの再挿入は上書きになる（再インデックス時の重複を防ぐ）
type Record struct {
	ID           uuid.UUID
	TranscriptID string
	Ordinal      int
	Content      string
	Embedding    []float32
}

// Hit は類似検索の1件の結果を表す
type Hit struct {
	TranscriptID string
	Ordinal      int
	Content      string
	Score        float64 // コサイン類似度（高いほど近い）
}

// Index は名前付きコレクション単位のベクトル索引を提供する
// 検索は読み取り専用で並行安全、書き込みはコレクション単位で直列化される
type Index interface {
	// EnsureCollection はコレクションを必要に応じて作成する
	EnsureCollection(ctx context.Context, name string) error

	// Upsert はレコード群を挿入する。論理キーが重複する既存行は上書きされる。
	// 次元不一致は書き込み前に ErrDimensionMismatch で拒否される。
	Upsert(ctx context.Context, collection string, records []Record) error

	// Search はコサイン類似度の降順で最大k件を返す
	// 空・未作成のコレクションに対してはエラーではなく空列を返す
	Search(ctx context.Context, collection string, query []float32, k int) ([]Hit, error)

	// DeleteTranscript は指定トランスクリプト由来の行を削除する
	DeleteTranscript(ctx context.Context, collection, transcriptID string) error
}
