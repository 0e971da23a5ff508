package infra

import (
	"context"
	"log/slog"
	"time"

	"migration-pipeline-service/internal/domain"
)

// DotnetTestRunner はdotnet testによってテストスイートを実行する。
type DotnetTestRunner struct {
	runner     Runner
	project    string // テストプロジェクトのパス（空の場合はカレントのソリューション）
	resultsDir string
	timeout    time.Duration
}

// NewDotnetTestRunner は新しいDotnetTestRunnerを生成する。
func NewDotnetTestRunner(runner Runner, project, resultsDir string, timeout time.Duration) *DotnetTestRunner {
	return &DotnetTestRunner{
		runner:     runner,
		project:    project,
		resultsDir: resultsDir,
		timeout:    timeout,
	}
}

// Run はテストスイートを実行し、結果アーティファクトのパスを返す。
// スイートの失敗は*domain.TestErrorとして返す。
func (t *DotnetTestRunner) Run(ctx context.Context) (string, error) {
	args := []string{"test"}
	if t.project != "" {
		args = append(args, t.project)
	}
	args = append(args, "--logger", "trx", "--results-directory", t.resultsDir)

	if _, err := t.runner.Run(ctx, Command{Tool: "dotnet", Args: args, Timeout: t.timeout}); err != nil {
		slog.ErrorContext(ctx, "test suite failed",
			"operation", "run_tests",
			"results_dir", t.resultsDir,
			"error", err,
		)
		return t.resultsDir, &domain.TestError{ArtifactPath: t.resultsDir, Err: err}
	}

	slog.InfoContext(ctx, "test suite passed",
		"operation", "run_tests",
		"results_dir", t.resultsDir,
	)
	return t.resultsDir, nil
}
