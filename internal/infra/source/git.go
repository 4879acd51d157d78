package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	giturls "github.com/whilp/git-urls"

	"github.com/jinford/haibuddy/internal/core/ingestion"
)

// GitSource はGitリポジトリからトランスクリプトを取得する
// List の呼び出し時にクローンまたはフェッチで作業コピーを同期する
type GitSource struct {
	url      string
	ref      string
	cloneDir string
	subdir   string

	mu     sync.Mutex
	synced *DirSource
}

type gitSourceOptions struct {
	ref    string
	subdir string
}

// GitSourceOption は GitSource のオプション設定
type GitSourceOption func(*gitSourceOptions)

// WithGitRef は同期するブランチ名を設定する
func WithGitRef(ref string) GitSourceOption {
	return func(o *gitSourceOptions) {
		o.ref = ref
	}
}

// WithGitSubdir はリポジトリ内のトランスクリプト配置ディレクトリを設定する
func WithGitSubdir(subdir string) GitSourceOption {
	return func(o *gitSourceOptions) {
		o.subdir = subdir
	}
}

// NewGitSource は新しい GitSource を作成する
// cloneRoot 配下にリポジトリURLから導出したディレクトリへクローンされる
func NewGitSource(url, cloneRoot string, opts ...GitSourceOption) (*GitSource, error) {
	options := gitSourceOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	dirName, err := urlToDirectoryName(url)
	if err != nil {
		return nil, err
	}

	return &GitSource{
		url:      url,
		ref:      options.ref,
		cloneDir: filepath.Join(cloneRoot, dirName),
		subdir:   options.subdir,
	}, nil
}

var _ ingestion.Source = (*GitSource)(nil)

func (s *GitSource) Name() string {
	return fmt.Sprintf("git(%s)", s.url)
}

// List は作業コピーを同期してからトランスクリプトを列挙する
func (s *GitSource) List(ctx context.Context) ([]string, error) {
	dir, err := s.sync(ctx)
	if err != nil {
		return nil, err
	}
	return dir.List(ctx)
}

// Fetch は同期済みの作業コピーからトランスクリプトを読み出す
func (s *GitSource) Fetch(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	dir := s.synced
	s.mu.Unlock()
	if dir == nil {
		var err error
		dir, err = s.sync(ctx)
		if err != nil {
			return "", err
		}
	}
	return dir.Fetch(ctx, id)
}

// sync はクローンまたはフェッチで作業コピーを最新化する
func (s *GitSource) sync(ctx context.Context) (*DirSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cloneOrPull(ctx); err != nil {
		return nil, err
	}

	root := s.cloneDir
	if s.subdir != "" {
		root = filepath.Join(root, s.subdir)
	}

	dir, err := NewDirSource(root)
	if err != nil {
		return nil, fmt.Errorf("transcript directory missing in repository: %w", err)
	}

	s.synced = dir
	return dir, nil
}

func (s *GitSource) cloneOrPull(ctx context.Context) error {
	gitDir := filepath.Join(s.cloneDir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return s.clone(ctx)
	}
	return s.pull(ctx)
}

func (s *GitSource) clone(ctx context.Context) error {
	opts := &git.CloneOptions{URL: s.url}
	if s.ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.ref)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, s.cloneDir, false, opts); err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

func (s *GitSource) pull(ctx context.Context) error {
	repo, err := git.PlainOpen(s.cloneDir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return fmt.Errorf("failed to get remote: %w", err)
	}

	err = remote.FetchContext(ctx, &git.FetchOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to fetch: %w", err)
	}

	if s.ref != "" {
		err = worktree.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewRemoteReferenceName("origin", s.ref),
			Force:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to checkout %q: %w", s.ref, err)
		}
	}

	return nil
}

// urlToDirectoryName はGit URLをクローン先のディレクトリ名に変換する
func urlToDirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	return filepath.Join(hostname, path), nil
}
