package llm

import "context"

// CompletionRequest はテキスト生成の1回分のリクエストを表す
type CompletionRequest struct {
	System      string  // システム指示（空なら省略）
	Prompt      string  // ユーザー入力
	MaxTokens   int     // 出力トークン上限（0なら制限なし）
	Temperature float64 // 生成温度（分類は0、会話文は高め）
}

// Client はテキスト生成能力のインターフェース
// 分類用の決定的な呼び出しと会話用の呼び出しを同じ口で扱う
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder はテキストをベクトルに変換する能力のインターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}
