package localindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/haibuddy/internal/core/vecindex"
)

// Index はプロセス内メモリ上で動作する vecindex.Index 実装です
// PostgreSQLを用意できないローカル実行とテストのための軽量バックエンドで、
// コレクションごとに全件走査のコサイン類似度検索を行います
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int                   // 最初の挿入で確定する
	records   []vecindex.Record     // 挿入順を保持
	byKey     map[recordKey]int     // 論理キー -> records内の位置
}

type recordKey struct {
	transcriptID string
	ordinal      int
}

// New は新しいインメモリIndexを作成します
func New() *Index {
	return &Index{
		collections: make(map[string]*collection),
	}
}

var _ vecindex.Index = (*Index)(nil)

// EnsureCollection はコレクションを必要に応じて作成します
func (ix *Index) EnsureCollection(ctx context.Context, name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.collections[name]; !ok {
		ix.collections[name] = &collection{
			byKey: make(map[recordKey]int),
		}
	}
	return nil
}

// Upsert はレコード群を挿入します
// 次元検証は全件に対して書き込み前に行い、1件でも不一致なら何も変更しません
func (ix *Index) Upsert(ctx context.Context, name string, records []vecindex.Record) error {
	if len(records) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	col, ok := ix.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vecindex.ErrCollectionNotFound, name)
	}

	dimension := col.dimension
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			return vecindex.ErrEmptyVector
		}
		if dimension == 0 {
			dimension = len(rec.Embedding)
			continue
		}
		if len(rec.Embedding) != dimension {
			return &vecindex.DimensionError{
				Collection: name,
				Want:       dimension,
				Got:        len(rec.Embedding),
			}
		}
	}

	col.dimension = dimension
	for _, rec := range records {
		key := recordKey{transcriptID: rec.TranscriptID, ordinal: rec.Ordinal}
		if pos, exists := col.byKey[key]; exists {
			col.records[pos] = rec
			continue
		}
		col.byKey[key] = len(col.records)
		col.records = append(col.records, rec)
	}

	return nil
}

// Search はコサイン類似度の降順で最大k件を返します
// 未作成・空のコレクションにはエラーではなく空列を返します
func (ix *Index) Search(ctx context.Context, name string, query []float32, k int) ([]vecindex.Hit, error) {
	if len(query) == 0 {
		return nil, vecindex.ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	col, ok := ix.collections[name]
	if !ok || len(col.records) == 0 {
		return nil, nil
	}
	if len(query) != col.dimension {
		return nil, &vecindex.DimensionError{
			Collection: name,
			Want:       col.dimension,
			Got:        len(query),
		}
	}

	hits := make([]vecindex.Hit, 0, len(col.records))
	for _, rec := range col.records {
		hits = append(hits, vecindex.Hit{
			TranscriptID: rec.TranscriptID,
			Ordinal:      rec.Ordinal,
			Content:      rec.Content,
			Score:        cosineSimilarity(query, rec.Embedding),
		})
	}

	// 同点は挿入順を保つ
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteTranscript は指定トランスクリプト由来の行を削除します
func (ix *Index) DeleteTranscript(ctx context.Context, name, transcriptID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	col, ok := ix.collections[name]
	if !ok {
		return nil
	}

	kept := col.records[:0]
	for _, rec := range col.records {
		if rec.TranscriptID != transcriptID {
			kept = append(kept, rec)
		}
	}
	col.records = kept

	col.byKey = make(map[recordKey]int, len(col.records))
	for i, rec := range col.records {
		col.byKey[recordKey{transcriptID: rec.TranscriptID, ordinal: rec.Ordinal}] = i
	}
	return nil
}

// cosineSimilarity は2ベクトルのコサイン類似度を計算します
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
