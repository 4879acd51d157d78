package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/haibuddy/cmd/haibuddy/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:  "local",
			Usage: "PostgreSQLの代わりにプロセス内ベクトル索引を使用する",
		},
	}

	app := &cli.Command{
		Name:  "haibuddy",
		Usage: "コース動画トランスクリプト向け QA アシスタント",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "トランスクリプトを取り込みベクトル索引を構築する",
				Flags:  commonFlags,
				Action: commands.IngestAction,
			},
			{
				Name:  "ask",
				Usage: "1つの質問に回答する",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "question",
						Aliases: []string{"q"},
						Usage:   "質問文（省略時は引数から読む）",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "セッションID（省略時は新規生成）",
					},
				}, commonFlags...),
				ArgsUsage: "[question]",
				Action:    commands.AskAction,
			},
			{
				Name:  "chat",
				Usage: "対話モードで質問に回答する",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "セッションID（省略時は新規生成）",
					},
				}, commonFlags...),
				Action: commands.ChatAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
