package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/jinford/haibuddy/internal/core/ingestion"
)

const (
	// IgnoreFileName はトランスクリプトの除外パターンを記述するファイル名
	IgnoreFileName = ".buddyignore"

	// transcriptExtension は取り込み対象のファイル拡張子
	transcriptExtension = ".txt"
)

// DirSource はローカルディレクトリからトランスクリプトを取得する
// トランスクリプトIDはディレクトリからの相対パスになる
type DirSource struct {
	root    string
	matcher *gitignore.GitIgnore
}

// NewDirSource は新しい DirSource を作成する
// root 直下に .buddyignore があれば除外パターンとして読み込む
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat transcript directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcript source %q is not a directory", root)
	}

	matcher, err := loadIgnoreMatcher(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	return &DirSource{root: root, matcher: matcher}, nil
}

var _ ingestion.Source = (*DirSource)(nil)

func (s *DirSource) Name() string {
	return fmt.Sprintf("dir(%s)", s.root)
}

// List はルート配下の .txt ファイルを相対パスで列挙する
// .buddyignore にマッチするパスは除外される
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	var ids []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), transcriptExtension) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if s.matcher != nil && s.matcher.MatchesPath(rel) {
			return nil
		}

		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts in %q: %w", s.root, err)
	}

	return ids, nil
}

// Fetch はトランスクリプトの全文を返す
// バイナリファイルはエラーとして拒否される
func (s *DirSource) Fetch(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, filepath.FromSlash(id))
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript %q: %w", id, err)
	}

	if enry.IsBinary(content) {
		return "", fmt.Errorf("transcript %q is a binary file", id)
	}

	return string(content), nil
}

// loadIgnoreMatcher は ignore ファイルからマッチャーを構築する
// ファイルが存在しない場合は nil を返す
func loadIgnoreMatcher(path string) (*gitignore.GitIgnore, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	return gitignore.CompileIgnoreLines(patterns...), nil
}
