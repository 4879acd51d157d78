package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jinford/haibuddy/internal/core/memory"
)

const (
	// sessionPrefix はセッション履歴キーの接頭辞
	sessionPrefix = "haibuddy:session:"

	// DefaultSessionTTL はセッション履歴の保持期間
	DefaultSessionTTL = 24 * time.Hour
)

// SessionStore は memory.SessionStore の Redis 実装
// 各セッションはRedisのリストで保持し、上限超過分はLTRIMで切り捨てる
type SessionStore struct {
	client *redis.Client
	cap    int
	ttl    time.Duration
}

type SessionStoreOption func(*SessionStore)

// WithSessionTTL はセッション履歴の保持期間を設定する
func WithSessionTTL(ttl time.Duration) SessionStoreOption {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewSessionStore は新しい SessionStore を作成する
// cap は1セッションあたりに保持する直近ターン数
func NewSessionStore(client *redis.Client, cap int, opts ...SessionStoreOption) *SessionStore {
	if cap <= 0 {
		cap = 5
	}
	s := &SessionStore{
		client: client,
		cap:    cap,
		ttl:    DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ memory.SessionStore = (*SessionStore)(nil)

// Append はターンを末尾に追加し、古いターンから切り捨てる
func (s *SessionStore) Append(ctx context.Context, sessionID string, turn memory.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := sessionPrefix + sessionID

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.cap), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append session turn: %w", err)
	}

	return nil
}

// History は古い順にターンを返す。存在しないセッションは空列を返す。
func (s *SessionStore) History(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	items, err := s.client.LRange(ctx, sessionPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	turns := make([]memory.Turn, 0, len(items))
	for _, item := range items {
		var turn memory.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
