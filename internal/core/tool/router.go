package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/haibuddy/internal/core/intent"
)

const (
	// DefaultDispatchTimeout はツール1回の実行に許す既定の上限時間
	DefaultDispatchTimeout = 12 * time.Second

	// fallbackPrefix は意図が特定できなかった場合に検索回答へ付ける前置き
	fallbackPrefix = "I think you're asking about the course. Here's what I found:\n\n"

	// emptyAnswerMessage はツールが空回答を返した場合の代替文
	emptyAnswerMessage = "Sorry, I couldn't find information to answer that."
)

// Router は分類された意図を対応するツールへ振り分ける
// 対応表は明示的な閉じた集合で、未知の意図は検索ツールへのフォールバックになる
type Router struct {
	tools     map[intent.Intent]Tool
	retrieval Tool
	timeout   time.Duration
	logger    *slog.Logger
}

type RouterOption func(*Router)

// WithDispatchTimeout はツール実行のタイムアウトを設定する
func WithDispatchTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRouterLogger はロガーを設定する
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter は新しいRouterを作成する
// retrieval はフォールバック先を兼ねるため必須
func NewRouter(retrieval, codeHelp, notes, memoryRecall, general Tool, opts ...RouterOption) *Router {
	r := &Router{
		tools: map[intent.Intent]Tool{
			intent.Retrieval:        retrieval,
			intent.CodeHelp:         codeHelp,
			intent.Notes:            notes,
			intent.Memory:           memoryRecall,
			intent.GeneralKnowledge: general,
		},
		retrieval: retrieval,
		timeout:   DefaultDispatchTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route は意図に対応するツールを実行し、中間回答と解決後の意図を返す
// エラーやタイムアウトは番兵メッセージへ畳み込むため、戻り値は常に非空文字列となる
func (r *Router) Route(ctx context.Context, in intent.Intent, question string) (string, intent.Intent) {
	t, ok := r.tools[in]
	resolved := in
	if !ok || in == intent.Fallback {
		// 未知の意図は検索に任せ、推測であることを前置きで示す
		t = r.retrieval
		resolved = intent.Fallback
	}

	answer, err := r.dispatch(ctx, t, question)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		r.logger.Warn("ツールの実行がタイムアウトした", slog.String("tool", t.Name()), slog.Duration("timeout", r.timeout))
		return fmt.Sprintf("tool timed out: %s did not finish within %s", t.Name(), r.timeout), resolved
	case err != nil:
		r.logger.Warn("ツールの実行に失敗した", slog.String("tool", t.Name()), slog.String("error", err.Error()))
		return fmt.Sprintf("tool error: %s", err), resolved
	case answer == "":
		return emptyAnswerMessage, resolved
	}

	if resolved == intent.Fallback {
		answer = fallbackPrefix + answer
	}
	return answer, resolved
}

type dispatchResult struct {
	answer string
	err    error
}

// dispatch はツールを期限付きで実行する
// タイムアウト後にゴルーチンが結果を返してもブロックしないよう、チャネルはバッファ付きにする
func (r *Router) dispatch(ctx context.Context, t Tool, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan dispatchResult, 1)
	go func() {
		answer, err := t.Invoke(ctx, question)
		ch <- dispatchResult{answer: answer, err: err}
	}()

	select {
	case res := <-ch:
		return res.answer, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
