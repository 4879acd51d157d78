package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/haibuddy/internal/core/ingestion"
	"github.com/jinford/haibuddy/internal/infra/source"
	"github.com/jinford/haibuddy/pkg/config"
)

// IngestAction はトランスクリプトを取り込みベクトル索引を構築する
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("local"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	src, err := newSource(appCtx.Config)
	if err != nil {
		return err
	}

	splitter, err := appCtx.newSplitter()
	if err != nil {
		return err
	}

	svc := ingestion.NewService(appCtx.Index, src, appCtx.Embedder, splitter,
		ingestion.WithCollection(config.TranscriptCollection),
		ingestion.WithLogger(appCtx.Logger),
	)

	result, err := svc.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	fmt.Printf("取り込み完了: %dファイル / %dチャンク (%s)\n",
		result.FilesIndexed, result.ChunksIndexed, result.Duration.Round(timePrecision))
	for _, failure := range result.Failures {
		fmt.Printf("  失敗: %s: %v\n", failure.TranscriptID, failure.Err)
	}

	return nil
}

// newSource は設定に応じたトランスクリプト取得元を構築する
func newSource(cfg *config.Config) (ingestion.Source, error) {
	switch cfg.Source.Kind {
	case "git":
		return source.NewGitSource(cfg.Source.Location, cfg.Source.GitDir,
			source.WithGitRef(cfg.Source.GitRef),
			source.WithGitSubdir(cfg.Source.Subdir),
		)
	default:
		return source.NewDirSource(cfg.Source.Location)
	}
}
