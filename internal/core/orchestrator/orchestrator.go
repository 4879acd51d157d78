package orchestrator

import (
	"context"
	"log/slog"

	"github.com/jinford/haibuddy/internal/core/intent"
	"github.com/jinford/haibuddy/internal/core/memory"
)

// Classifier は質問から意図を推定する
type Classifier interface {
	Classify(ctx context.Context, question string) intent.Intent
}

// Router は意図に応じたツールを実行し中間回答を返す
type Router interface {
	Route(ctx context.Context, in intent.Intent, question string) (string, intent.Intent)
}

// Rewriter は中間回答をペルソナの口調へ書き換える
type Rewriter interface {
	Rewrite(ctx context.Context, question, intermediate string) string
}

// Rememberer は会話ターンを長期メモリへ書き込む
type Rememberer interface {
	Remember(ctx context.Context, userMsg, assistantMsg string) error
}

// fallbackAnswer はパイプライン全体が失敗した場合でも返す最後の回答
const fallbackAnswer = "Sorry, something went wrong on my side. Please try asking again."

// Orchestrator は分類→振り分け→書き換え→記録の正規パイプラインを実行する
// 質問への応答経路はこの1本のみで、どの段が失敗しても文字列の回答を返す
type Orchestrator struct {
	classifier Classifier
	router     Router
	rewriter   Rewriter
	sessions   memory.SessionStore
	durable    Rememberer
	logger     *slog.Logger
}

type Option func(*Orchestrator)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New は新しいOrchestratorを作成する
func New(classifier Classifier, router Router, rewriter Rewriter, sessions memory.SessionStore, durable Rememberer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		router:     router,
		rewriter:   rewriter,
		sessions:   sessions,
		durable:    durable,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run は1つの質問を処理して最終回答を返す
// メモリへの書き込み失敗は警告ログに留め、回答自体は常に非空文字列で返す
func (o *Orchestrator) Run(ctx context.Context, sessionID, question string) string {
	log := o.logger.With(slog.String("session_id", sessionID))
	log.Info("質問を受け付けた", slog.Int("question_length", len(question)))

	classified := o.classifier.Classify(ctx, question)
	log.Info("意図を分類した", slog.String("intent", string(classified)))

	intermediate, resolved := o.router.Route(ctx, classified, question)
	log.Info("ツールへ振り分けた",
		slog.String("resolved_intent", string(resolved)),
		slog.Int("intermediate_length", len(intermediate)),
	)
	if intermediate == "" {
		// ルーターの契約上は到達しないが、回答が空になる経路は残さない
		intermediate = fallbackAnswer
	}

	answer := o.rewriter.Rewrite(ctx, question, intermediate)
	if answer == "" {
		answer = intermediate
	}
	log.Info("ペルソナへ書き換えた", slog.Int("answer_length", len(answer)))

	o.record(ctx, log, sessionID, question, answer)
	log.Info("質問の処理を完了した")

	return answer
}

// History はセッションの会話履歴を返す
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	return o.sessions.History(ctx, sessionID)
}

// record はセッション履歴と長期メモリへターンを書き込む
// どちらの失敗も回答の成否には影響させない
func (o *Orchestrator) record(ctx context.Context, log *slog.Logger, sessionID, question, answer string) {
	turn := memory.Turn{User: question, Assistant: answer}
	if err := o.sessions.Append(ctx, sessionID, turn); err != nil {
		log.Warn("セッション履歴の保存に失敗した", slog.String("error", err.Error()))
	}
	if err := o.durable.Remember(ctx, question, answer); err != nil {
		log.Warn("長期メモリへの保存に失敗した", slog.String("error", err.Error()))
	}
}
