package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/haibuddy/internal/core/vecindex"
	"github.com/jinford/haibuddy/pkg/db"
)

// Index は pgvector を使った vecindex.Index の PostgreSQL 実装
// 次元はコレクションごとに最初の挿入で確定し、以降の不一致は書き込み前に拒否される
type Index struct {
	db *db.DB
}

// NewIndex は新しい Index を作成する
func NewIndex(database *db.DB) *Index {
	return &Index{db: database}
}

var _ vecindex.Index = (*Index)(nil)

// Migrate はスキーマを作成する。起動時に1回呼び出す。
func (x *Index) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS collections (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			dimension INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS embedding_records (
			id UUID PRIMARY KEY,
			collection_id BIGINT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			transcript_id TEXT NOT NULL,
			ordinal INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (collection_id, transcript_id, ordinal)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embedding_records_transcript
			ON embedding_records (collection_id, transcript_id)`,
	}

	for _, stmt := range statements {
		if _, err := x.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate vector index schema: %w", err)
		}
	}
	return nil
}

// EnsureCollection はコレクション行を必要に応じて作成する
func (x *Index) EnsureCollection(ctx context.Context, name string) error {
	_, err := x.db.Pool.Exec(ctx,
		`INSERT INTO collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("failed to ensure collection %q: %w", name, err)
	}
	return nil
}

type collectionRow struct {
	id        int64
	dimension *int
}

func (x *Index) getCollection(ctx context.Context, tx pgx.Tx, name string) (*collectionRow, error) {
	var row collectionRow
	err := tx.QueryRow(ctx,
		`SELECT id, dimension FROM collections WHERE name = $1`, name,
	).Scan(&row.id, &row.dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", vecindex.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up collection %q: %w", name, err)
	}
	return &row, nil
}

// Upsert はレコード群を1トランザクションで書き込む
// コレクション単位のAdvisory Lockで書き込みを直列化し、
// 全レコードの次元検証を終えてから挿入を始める
func (x *Index) Upsert(ctx context.Context, collection string, records []vecindex.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := x.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, collection); err != nil {
		return fmt.Errorf("failed to acquire collection lock: %w", err)
	}

	col, err := x.getCollection(ctx, tx, collection)
	if err != nil {
		return err
	}

	dimension := 0
	if col.dimension != nil {
		dimension = *col.dimension
	}
	for _, record := range records {
		if len(record.Embedding) == 0 {
			return vecindex.ErrEmptyVector
		}
		if dimension == 0 {
			dimension = len(record.Embedding)
			continue
		}
		if len(record.Embedding) != dimension {
			return &vecindex.DimensionError{Collection: collection, Want: dimension, Got: len(record.Embedding)}
		}
	}

	if col.dimension == nil {
		if _, err := tx.Exec(ctx,
			`UPDATE collections SET dimension = $1 WHERE id = $2`, dimension, col.id); err != nil {
			return fmt.Errorf("failed to pin collection dimension: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(
			`INSERT INTO embedding_records (id, collection_id, transcript_id, ordinal, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (collection_id, transcript_id, ordinal)
			 DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			record.ID, col.id, record.TranscriptID, record.Ordinal, record.Content,
			pgvector.NewVector(record.Embedding),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert embedding record: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Search はコサイン類似度の降順で最大k件を返す
// 未作成・空のコレクションはエラーではなく空列を返す
func (x *Index) Search(ctx context.Context, collection string, query []float32, k int) ([]vecindex.Hit, error) {
	if len(query) == 0 {
		return nil, vecindex.ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	var dimension *int
	err := x.db.Pool.QueryRow(ctx,
		`SELECT dimension FROM collections WHERE name = $1`, collection,
	).Scan(&dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up collection %q: %w", collection, err)
	}
	if dimension == nil {
		// コレクションはあるがまだ1件も挿入されていない
		return nil, nil
	}
	if *dimension != len(query) {
		return nil, &vecindex.DimensionError{Collection: collection, Want: *dimension, Got: len(query)}
	}

	// 同距離の行は挿入順で返す
	// created_atはON CONFLICT更新で変わらないため挿入時の順序を保持する
	rows, err := x.db.Pool.Query(ctx,
		`SELECT r.transcript_id, r.ordinal, r.content, 1 - (r.embedding <=> $1) AS score
		 FROM embedding_records r
		 JOIN collections c ON c.id = r.collection_id
		 WHERE c.name = $2
		 ORDER BY r.embedding <=> $1, r.created_at, r.transcript_id, r.ordinal
		 LIMIT $3`,
		pgvector.NewVector(query), collection, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", collection, err)
	}
	defer rows.Close()

	var hits []vecindex.Hit
	for rows.Next() {
		var hit vecindex.Hit
		if err := rows.Scan(&hit.TranscriptID, &hit.Ordinal, &hit.Content, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return hits, nil
}

// DeleteTranscript は指定トランスクリプト由来の行を削除する
func (x *Index) DeleteTranscript(ctx context.Context, collection, transcriptID string) error {
	_, err := x.db.Pool.Exec(ctx,
		`DELETE FROM embedding_records r
		 USING collections c
		 WHERE r.collection_id = c.id AND c.name = $1 AND r.transcript_id = $2`,
		collection, transcriptID)
	if err != nil {
		return fmt.Errorf("failed to delete transcript %q: %w", transcriptID, err)
	}
	return nil
}
