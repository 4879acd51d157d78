package logger

import (
	"log/slog"
	"os"
)

// serviceName は全ログレコードに付与するサービス識別子
const serviceName = "haibuddy"

// Config はロガーの設定
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
}

// DefaultConfig はデフォルトのロガー設定
// LOG_LEVEL=debug でデバッグログを有効化できる
func DefaultConfig() Config {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return Config{
		Level:  level,
		Format: "json",
	}
}

// New は新しいロガーを作成し、デフォルトロガーとして設定します
// 全レコードに service=haibuddy が付与される
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default: // "json"
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(slog.String("service", serviceName))
	slog.SetDefault(logger)

	return logger
}
