package infra

import (
	"context"
	"fmt"
)

// GitClient はgitコマンドをラップするソース管理クライアント。
// 各操作は単発のコマンド呼び出しであり、セッション状態を持たない。
type GitClient struct {
	runner  Runner
	workDir string
}

// NewGitClient は新しいGitClientを生成する。
func NewGitClient(runner Runner, workDir string) *GitClient {
	return &GitClient{runner: runner, workDir: workDir}
}

func (g *GitClient) run(ctx context.Context, args ...string) error {
	if _, err := g.runner.Run(ctx, Command{Tool: "git", Args: args, Dir: g.workDir}); err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}

// Commit は指定のパスをステージしてコミットする。
func (g *GitClient) Commit(ctx context.Context, message string, paths ...string) error {
	if len(paths) > 0 {
		if err := g.run(ctx, append([]string{"add"}, paths...)...); err != nil {
			return err
		}
	}
	return g.run(ctx, "commit", "-m", message)
}

// Push は指定のrefをリモートへプッシュする。
func (g *GitClient) Push(ctx context.Context, remote, ref string) error {
	return g.run(ctx, "push", remote, ref)
}

// CreateBranch は新しいブランチを作成して切り替える。
func (g *GitClient) CreateBranch(ctx context.Context, name string) error {
	return g.run(ctx, "checkout", "-b", name)
}

// Tag は注釈付きタグを作成する。
func (g *GitClient) Tag(ctx context.Context, name, message string) error {
	if message == "" {
		message = name
	}
	return g.run(ctx, "tag", "-a", name, "-m", message)
}
