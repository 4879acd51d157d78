package memory

import (
	"context"
	"sync"
)

// Turn は1往復の会話を表す
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// SessionStore はセッション単位の短期会話メモリを提供する
// 直近N件のみを保持し、あふれた分は古い順に消える
type SessionStore interface {
	// Append はセッションに1ターンを追記する
	Append(ctx context.Context, sessionID string, turn Turn) error

	// History はセッションの直近ターンを追記順で返す
	History(ctx context.Context, sessionID string) ([]Turn, error)
}

// SessionRing はプロセス内メモリ上のSessionStore実装です
// セッションの寿命はプロセスと同じで、永続化されない
type SessionRing struct {
	mu       sync.Mutex
	cap      int
	sessions map[string][]Turn
}

// NewSessionRing は保持上限capの新しいSessionRingを作成します
func NewSessionRing(cap int) *SessionRing {
	if cap <= 0 {
		cap = 1
	}
	return &SessionRing{
		cap:      cap,
		sessions: make(map[string][]Turn),
	}
}

var _ SessionStore = (*SessionRing)(nil)

// Append はセッションに1ターンを追記します
// 上限を超えた場合は最も古いターンから順に捨てる
func (r *SessionRing) Append(ctx context.Context, sessionID string, turn Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns := append(r.sessions[sessionID], turn)
	if len(turns) > r.cap {
		turns = turns[len(turns)-r.cap:]
	}
	r.sessions[sessionID] = turns
	return nil
}

// History はセッションの直近ターンを追記順で返します
func (r *SessionRing) History(ctx context.Context, sessionID string) ([]Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns := r.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}
