package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jinford/haibuddy/internal/core/chunk"
	"github.com/jinford/haibuddy/internal/core/intent"
	"github.com/jinford/haibuddy/internal/core/memory"
	"github.com/jinford/haibuddy/internal/core/orchestrator"
	"github.com/jinford/haibuddy/internal/core/persona"
	"github.com/jinford/haibuddy/internal/core/tool"
	"github.com/jinford/haibuddy/internal/core/vecindex"
	"github.com/jinford/haibuddy/internal/infra/localindex"
	"github.com/jinford/haibuddy/internal/infra/openai"
	"github.com/jinford/haibuddy/internal/infra/postgres"
	"github.com/jinford/haibuddy/internal/infra/redis"
	"github.com/jinford/haibuddy/internal/platform/logger"
	"github.com/jinford/haibuddy/pkg/config"
	"github.com/jinford/haibuddy/pkg/db"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config      *config.Config
	Database    *db.DB
	Index       vecindex.Index
	Embedder    *openai.Embedder
	LLMClient   *openai.Client
	Logger      *slog.Logger
	redisClient *goredis.Client
}

// NewAppContext は設定を読み込み、索引バックエンドとOpenAIクライアントを初期化する
// local が true の場合はPostgreSQLに接続せずプロセス内索引を使う
func NewAppContext(ctx context.Context, envFile string, local bool) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.DefaultConfig())

	appCtx := &AppContext{
		Config: cfg,
		Logger: appLogger,
	}

	if local {
		appCtx.Index = localindex.New()
	} else {
		database, err := db.New(ctx, db.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース接続に失敗: %w", err)
		}

		index := postgres.NewIndex(database)
		if err := index.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("索引スキーマの作成に失敗: %w", err)
		}

		appCtx.Database = database
		appCtx.Index = index
	}

	appCtx.Embedder = openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	client, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.LLMModel)
	if err != nil {
		appCtx.Close()
		return nil, err
	}
	appCtx.LLMClient = client

	return appCtx, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.redisClient != nil {
		_ = ac.redisClient.Close()
	}
	if ac.Database != nil {
		ac.Database.Close()
	}
}

// timePrecision は所要時間表示の丸め単位
const timePrecision = 10 * time.Millisecond

// newSplitter は設定値からチャンク分割器を構築する
func (ac *AppContext) newSplitter() (*chunk.Splitter, error) {
	splitter, err := chunk.NewSplitter(ac.Config.Chunking.MaxTokens, ac.Config.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("チャンク分割器の初期化に失敗: %w", err)
	}
	return splitter, nil
}

// newSessionStore はREDIS_ADDRの有無でセッションメモリの実装を選ぶ
func (ac *AppContext) newSessionStore() memory.SessionStore {
	if ac.Config.RedisAddr == "" {
		return memory.NewSessionRing(ac.Config.Memory.SessionCap)
	}

	ac.redisClient = goredis.NewClient(&goredis.Options{Addr: ac.Config.RedisAddr})
	return redis.NewSessionStore(ac.redisClient, ac.Config.Memory.SessionCap)
}

// NewOrchestrator は質問応答パイプライン一式を組み立てる
func (ac *AppContext) NewOrchestrator() *orchestrator.Orchestrator {
	cfg := ac.Config

	durable := memory.NewDurableMemory(ac.Index, ac.Embedder,
		memory.WithDurableCollection(config.MemoryCollection),
		memory.WithRecallMinScore(cfg.Memory.RecallMinScore),
		memory.WithDurableLogger(ac.Logger),
	)

	retrieval := tool.NewRetrievalTool(ac.Index, ac.Embedder, ac.LLMClient, config.TranscriptCollection, cfg.Pipeline.TopK)
	notes := tool.NewNotesTool(ac.Index, ac.Embedder, ac.LLMClient, config.TranscriptCollection, cfg.Pipeline.TopK)

	router := tool.NewRouter(
		retrieval,
		tool.NewCodeHelpTool(ac.LLMClient),
		notes,
		tool.NewMemoryTool(durable),
		tool.NewGeneralKnowledgeTool(ac.LLMClient),
		tool.WithDispatchTimeout(time.Duration(cfg.Pipeline.ToolTimeoutSeconds)*time.Second),
		tool.WithRouterLogger(ac.Logger),
	)

	return orchestrator.New(
		intent.NewClassifier(ac.LLMClient, intent.WithClassifierLogger(ac.Logger)),
		router,
		persona.NewRewriter(ac.LLMClient, persona.WithRewriterLogger(ac.Logger)),
		ac.newSessionStore(),
		durable,
		orchestrator.WithLogger(ac.Logger),
	)
}
