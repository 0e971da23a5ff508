// Package repository はデータアクセス層の実装を提供する。
// マイグレーション状態のデータソースは外部マイグレーションツール（dotnet ef）
// であり、外部データベースが信頼できる唯一の状態となる。
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"migration-pipeline-service/internal/domain"
	"migration-pipeline-service/internal/infra"
)

const (
	// appliedMarker は適用済みマイグレーションの行に含まれるマーカー。
	// 大文字小文字を区別せずに照合する。
	appliedMarker = "[applied]"

	// dotnetCLIHomeVar はツールのインストールルートを上書きする環境変数。
	dotnetCLIHomeVar = "DOTNET_CLI_HOME"
)

// pendingMarkerPattern は保留中マイグレーションの行末マーカー。
var pendingMarkerPattern = regexp.MustCompile(`(?i)\s*\(pending\)$`)

// EFMigrationRepository はdotnet efコマンド経由でマイグレーション状態へ
// アクセスする。セッション状態を持たず、対象は呼び出しごとに受け取る。
type EFMigrationRepository struct {
	runner         infra.Runner
	commandTimeout time.Duration
}

// NewEFMigrationRepository は新しいEFMigrationRepositoryを生成する。
func NewEFMigrationRepository(runner infra.Runner, commandTimeout time.Duration) *EFMigrationRepository {
	return &EFMigrationRepository{
		runner:         runner,
		commandTimeout: commandTimeout,
	}
}

// efCommand はツール配置モードに応じたefコマンド呼び出しを組み立てる。
// グローバルモードは `dotnet ef …`、ローカルモードは `dotnet dotnet-ef …`。
func (r *EFMigrationRepository) efCommand(target domain.Target, args ...string) infra.Command {
	sub := "dotnet-ef"
	if target.UseGlobalTool {
		sub = "ef"
	}

	full := append([]string{sub}, args...)
	full = append(full,
		"--project", target.MigrationsFolder,
		"--environment", target.Environment,
	)

	return infra.Command{
		Tool:    "dotnet",
		Args:    full,
		Dir:     target.HomeDir,
		Env:     map[string]string{dotnetCLIHomeVar: target.HomeDir},
		Timeout: r.commandTimeout,
	}
}

// runEF はefコマンドを実行する。ツール未導入による失敗の場合は一度だけ
// インストールを試み、元のコマンドをちょうど一度だけ再実行する。
func (r *EFMigrationRepository) runEF(ctx context.Context, target domain.Target, args ...string) (string, error) {
	cmd := r.efCommand(target, args...)

	out, err := r.runner.Run(ctx, cmd)
	if err == nil {
		return out, nil
	}
	if !isToolMissing(err) {
		return "", err
	}

	slog.WarnContext(ctx, "migration tool not found, installing",
		"operation", "ensure_tool",
		"global", target.UseGlobalTool,
	)
	if installErr := r.installTool(ctx, target); installErr != nil {
		return "", fmt.Errorf("installing dotnet-ef tool: %w", installErr)
	}

	return r.runner.Run(ctx, cmd)
}

// installTool はツール配置モードに応じてdotnet-efを導入する。
func (r *EFMigrationRepository) installTool(ctx context.Context, target domain.Target) error {
	args := []string{"tool", "restore"}
	if target.UseGlobalTool {
		args = []string{"tool", "install", "--global", "dotnet-ef"}
	}

	_, err := r.runner.Run(ctx, infra.Command{
		Tool:    "dotnet",
		Args:    args,
		Dir:     target.HomeDir,
		Env:     map[string]string{dotnetCLIHomeVar: target.HomeDir},
		Timeout: r.commandTimeout,
	})
	return err
}

// isToolMissing はコマンド失敗がツール未導入によるものか判定する。
func isToolMissing(err error) bool {
	var cmdErr *domain.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Timeout {
		return false
	}

	msg := strings.ToLower(cmdErr.Stderr + " " + cmdErr.Err.Error())
	return strings.Contains(msg, "could not execute because the specified command or file was not found") ||
		strings.Contains(msg, "no executable found matching command") ||
		strings.Contains(msg, "executable file not found")
}

// ListMigrations は既知のマイグレーション一覧を取得し、適用状態を分類する。
// 失敗した場合、部分的な結果は返さない。
func (r *EFMigrationRepository) ListMigrations(ctx context.Context, target domain.Target) (domain.MigrationSnapshot, error) {
	out, err := r.runEF(ctx, target, "migrations", "list")
	if err != nil {
		slog.ErrorContext(ctx, "failed to list migrations",
			"operation", "list_migrations",
			"environment", target.Environment,
			"error", err,
		)
		return nil, &domain.InspectionError{Environment: target.Environment, Err: err}
	}

	return parseMigrationListing(out), nil
}

// ApplyPending は保留中のマイグレーションをすべて適用し、適用後に最新と
// なったマイグレーション名を返す。冪等性はツール呼び出しに仮定せず、
// 前後のスナップショットを比較して確認する。
func (r *EFMigrationRepository) ApplyPending(ctx context.Context, target domain.Target) (domain.MigrationName, error) {
	before, err := r.ListMigrations(ctx, target)
	if err != nil {
		return domain.NoBaseline, &domain.ApplyError{Environment: target.Environment, Err: err}
	}

	if _, err := r.runEF(ctx, target, "database", "update"); err != nil {
		slog.ErrorContext(ctx, "failed to apply migrations",
			"operation", "apply_pending",
			"environment", target.Environment,
			"error", err,
		)
		return domain.NoBaseline, &domain.ApplyError{Environment: target.Environment, Err: err}
	}

	after, err := r.ListMigrations(ctx, target)
	if err != nil {
		return domain.NoBaseline, &domain.ApplyError{Environment: target.Environment, Err: err}
	}

	current := after.LastApplied()
	if current == before.LastApplied() {
		slog.InfoContext(ctx, "no pending migrations to apply",
			"operation", "apply_pending",
			"environment", target.Environment,
			"current", string(current),
		)
	} else {
		slog.InfoContext(ctx, "migrations applied",
			"operation", "apply_pending",
			"environment", target.Environment,
			"previous", string(before.LastApplied()),
			"current", string(current),
		)
	}
	return current, nil
}

// RevertTo はデータベースを指定のマイグレーションへ移動する。
// 対象は過去のスナップショットで観測された名前であることが前提。
// 未知の名前の拒否は外部ツールに委ねる。
func (r *EFMigrationRepository) RevertTo(ctx context.Context, target domain.Target, name domain.MigrationName) error {
	if _, err := r.runEF(ctx, target, "database", "update", string(name)); err != nil {
		slog.ErrorContext(ctx, "failed to revert database",
			"operation", "revert_to",
			"environment", target.Environment,
			"target", string(name),
			"error", err,
		)
		return &domain.RollbackError{Environment: target.Environment, Target: name, Err: err}
	}

	slog.InfoContext(ctx, "database reverted",
		"operation", "revert_to",
		"environment", target.Environment,
		"target", string(name),
	)
	return nil
}

// parseMigrationListing はツール出力をスナップショットへ変換する。
// 行の順序はツールの報告順のまま保持する。
func parseMigrationListing(out string) domain.MigrationSnapshot {
	var snapshot domain.MigrationSnapshot
	for _, line := range strings.Split(out, "\n") {
		if record, ok := classifyMigrationLine(line); ok {
			snapshot = append(snapshot, record)
		}
	}
	return snapshot
}

// classifyMigrationLine は一覧の1行を(名前, 状態)へ分類する。
// 適用済みマーカーを含む行はApplied、保留マーカーに一致する行はPending。
// どちらのマーカーも持たない行はPendingとして扱い、ロールバック先の
// 候補から外す。空行は読み飛ばす。
func classifyMigrationLine(line string) (domain.MigrationRecord, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return domain.MigrationRecord{}, false
	}

	if idx := strings.Index(strings.ToLower(trimmed), appliedMarker); idx >= 0 {
		name := strings.TrimSpace(trimmed[:idx] + trimmed[idx+len(appliedMarker):])
		return domain.MigrationRecord{
			Name:   domain.MigrationName(name),
			Status: domain.MigrationStatusApplied,
		}, true
	}

	if loc := pendingMarkerPattern.FindStringIndex(trimmed); loc != nil {
		name := strings.TrimSpace(trimmed[:loc[0]])
		return domain.MigrationRecord{
			Name:   domain.MigrationName(name),
			Status: domain.MigrationStatusPending,
		}, true
	}

	return domain.MigrationRecord{
		Name:   domain.MigrationName(trimmed),
		Status: domain.MigrationStatusPending,
	}, true
}
