package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + チャット生成）
	OpenAI OpenAIConfig

	// トランスクリプト取得元の設定
	Source SourceConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// 検索・ツール実行設定
	Pipeline PipelineConfig

	// 会話メモリ設定
	Memory MemoryConfig

	// Redis接続先（空の場合はプロセス内セッションメモリを使用）
	RedisAddr string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
}

// SourceConfig はトランスクリプト取得元の設定
// Kind は "dir"（ローカルディレクトリ）または "git"（リポジトリ）
type SourceConfig struct {
	Kind     string
	Location string // dir: ディレクトリパス / git: リポジトリURL
	GitRef   string // gitの場合のブランチ名（省略時はリモートのデフォルト）
	GitDir   string // gitの場合のクローン先ベースディレクトリ
	Subdir   string // リポジトリ内のトランスクリプト配置ディレクトリ
}

// ChunkingConfig はチャンク分割の設定
type ChunkingConfig struct {
	MaxTokens int // チャンクあたりの最大トークン数
	Overlap   int // 隣接チャンク間のオーバーラップトークン数
}

// PipelineConfig は検索・ツール実行の設定
type PipelineConfig struct {
	TopK               int // 検索で取得するチャンク数
	ToolTimeoutSeconds int // ツール実行の時間予算（秒）
}

// MemoryConfig は会話メモリの設定
type MemoryConfig struct {
	SessionCap     int     // セッションメモリに保持する直近ターン数
	RecallMinScore float64 // 長期メモリ想起の最小類似度（0で無効）
}

const (
	// TranscriptCollection はトランスクリプトチャンク用コレクション名
	TranscriptCollection = "transcripts"
	// MemoryCollection は長期メモリ用コレクション名
	MemoryCollection = "memory"
)

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "haibuddy"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "haibuddy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
		},
		Source: SourceConfig{
			Kind:     getEnv("TRANSCRIPT_SOURCE_KIND", "dir"),
			Location: getEnv("TRANSCRIPT_SOURCE_LOCATION", "./transcripts"),
			GitRef:   getEnv("TRANSCRIPT_GIT_REF", ""),
			GitDir:   getEnv("TRANSCRIPT_GIT_CLONE_DIR", "/var/lib/haibuddy/repos"),
			Subdir:   getEnv("TRANSCRIPT_SUBDIR", "transcripts"),
		},
		Chunking: ChunkingConfig{
			MaxTokens: getEnvAsInt("CHUNK_MAX_TOKENS", 300),
			Overlap:   getEnvAsInt("CHUNK_OVERLAP", 50),
		},
		Pipeline: PipelineConfig{
			TopK:               getEnvAsInt("RETRIEVAL_TOP_K", 3),
			ToolTimeoutSeconds: getEnvAsInt("TOOL_TIMEOUT_SECONDS", 12),
		},
		Memory: MemoryConfig{
			SessionCap:     getEnvAsInt("SESSION_MEMORY_CAP", 5),
			RecallMinScore: getEnvAsFloat("MEMORY_RECALL_MIN_SCORE", 0.2),
		},
		RedisAddr: getEnv("REDIS_ADDR", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します
// オーバーラップがチャンクサイズ以上の構成は前進しないウィンドウを生むため、
// 推測で丸めずに起動時点で拒否する
func (c *Config) Validate() error {
	if c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("invalid configuration: CHUNK_MAX_TOKENS must be positive (got %d)", c.Chunking.MaxTokens)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("invalid configuration: CHUNK_OVERLAP must not be negative (got %d)", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxTokens {
		return fmt.Errorf("invalid configuration: CHUNK_OVERLAP (%d) must be smaller than CHUNK_MAX_TOKENS (%d)",
			c.Chunking.Overlap, c.Chunking.MaxTokens)
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		return fmt.Errorf("invalid configuration: OPENAI_EMBEDDING_DIMENSION must be positive (got %d)", c.OpenAI.EmbeddingDimension)
	}
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("invalid configuration: RETRIEVAL_TOP_K must be positive (got %d)", c.Pipeline.TopK)
	}
	if c.Pipeline.ToolTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid configuration: TOOL_TIMEOUT_SECONDS must be positive (got %d)", c.Pipeline.ToolTimeoutSeconds)
	}
	if c.Memory.SessionCap <= 0 {
		return fmt.Errorf("invalid configuration: SESSION_MEMORY_CAP must be positive (got %d)", c.Memory.SessionCap)
	}
	switch c.Source.Kind {
	case "dir", "git":
	default:
		return fmt.Errorf("invalid configuration: TRANSCRIPT_SOURCE_KIND must be \"dir\" or \"git\" (got %q)", c.Source.Kind)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
