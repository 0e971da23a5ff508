// Package infra は外部サービスとの接続を提供する。
package infra

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"migration-pipeline-service/internal/domain"
)

// Command は1回の外部コマンド呼び出しの仕様。
type Command struct {
	Tool    string
	Args    []string
	Dir     string            // 空の場合はプロセスのカレントディレクトリ
	Env     map[string]string // プロセス環境に追記する環境変数
	Timeout time.Duration     // 0は無制限
}

// Runner は外部コマンドを実行するインターフェース。
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner はos/execによるRunnerの実装。
// 呼び出しごとにプロセスを1つ起動し、終了までブロックする。リトライは行わず、
// 失敗の扱いは呼び出し側が決める。
type ExecRunner struct{}

// NewExecRunner は新しいExecRunnerを生成する。
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run はコマンドを実行し、標準出力の内容を返す。
// 起動失敗・非ゼロ終了・タイムアウトはすべて*domain.CommandErrorとして返す。
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	runCtx := ctx
	cancel := func() {}
	if cmd.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	}
	defer cancel()

	slog.DebugContext(ctx, "running command",
		"operation", "run_command",
		"tool", cmd.Tool,
		"args", strings.Join(cmd.Args, " "),
		"dir", cmd.Dir,
	)

	c := exec.CommandContext(runCtx, cmd.Tool, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = os.Environ()
	for k, v := range cmd.Env {
		c.Env = append(c.Env, k+"="+v)
	}

	var stdout, stderr strings.Builder
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if err == nil {
		return stdout.String(), nil
	}

	cmdErr := &domain.CommandError{
		Tool:   cmd.Tool,
		Args:   cmd.Args,
		Dir:    cmd.Dir,
		Stderr: stderr.String(),
		Err:    err,
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		cmdErr.Timeout = true
	}
	return "", cmdErr
}
