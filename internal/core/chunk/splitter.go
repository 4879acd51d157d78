package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName はOpenAIのtext-embedding-3-smallと互換のエンコーディング
const encodingName = "cl100k_base"

var (
	// ErrInvalidMaxTokens は最大トークン数が不正な場合のエラー
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")

	// ErrInvalidOverlap はオーバーラップ設定が不正な場合のエラー
	// オーバーラップがチャンクサイズ以上だとウィンドウが前進しないため構成段階で拒否する
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than max tokens")
)

// Chunk はトランスクリプトから切り出した1区間を表す
type Chunk struct {
	Ordinal int    // 親トランスクリプト内での並び順（0始まり）
	Content string // 区間のテキスト
	Tokens  int    // 区間のトークン数
}

// Splitter はテキストをトークン窓で重なり付きに分割する
// 文字数ではなくトークン数を単位にすることでEmbeddingモデルの入力上限と整合させる
type Splitter struct {
	encoder   *tiktoken.Tiktoken
	maxTokens int
	overlap   int
}

// NewSplitter は新しいSplitterを作成します
func NewSplitter(maxTokens, overlap int) (*Splitter, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidMaxTokens, maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, fmt.Errorf("%w (max=%d, overlap=%d)", ErrInvalidOverlap, maxTokens, overlap)
	}

	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &Splitter{
		encoder:   encoder,
		maxTokens: maxTokens,
		overlap:   overlap,
	}, nil
}

// MaxTokens はチャンクあたりの最大トークン数を返す
func (s *Splitter) MaxTokens() int { return s.maxTokens }

// Overlap は隣接チャンク間のオーバーラップトークン数を返す
func (s *Splitter) Overlap() int { return s.overlap }

// Split はテキストをチャンク列に分割する
// 空白のみの入力には何も返さない。maxTokens以下の入力は必ず1チャンクになる。
// 次の開始位置は end-overlap で、overlap < maxTokens の検証により必ず前進する。
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := s.encoder.Encode(text, nil, nil)
	total := len(tokens)

	var chunks []Chunk
	start := 0
	for start < total {
		end := start + s.maxTokens
		if end > total {
			end = total
		}

		window := tokens[start:end]
		chunks = append(chunks, Chunk{
			Ordinal: len(chunks),
			Content: s.encoder.Decode(window),
			Tokens:  len(window),
		})

		if end == total {
			break
		}
		start = end - s.overlap
	}

	return chunks
}

// CountTokens はテキストのトークン数をカウントします
func (s *Splitter) CountTokens(text string) int {
	return len(s.encoder.Encode(text, nil, nil))
}
