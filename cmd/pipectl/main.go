// Package main はパイプラインCLIのエントリポイント。
// 具体的な実装の組み立て（DI）はここでのみ行う。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"migration-pipeline-service/config"
	"migration-pipeline-service/internal/infra"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	// 設定読み込み
	cfg := config.Load()

	// ログレベル設定
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}

	// トレース情報付きロガーを設定
	infra.SetupLogger(cfg, logLevel)

	rootCmd := &cobra.Command{
		Use:   "pipectl",
		Short: "Database migration pipeline CLI",
		Long:  "Automates the migrate, test and conditional-rollback step of a CI/CD pipeline",
	}

	rootCmd.AddCommand(runCmd(cfg))
	rootCmd.AddCommand(newMigrateCmd(cfg))
	rootCmd.AddCommand(releaseCmd(cfg))
	rootCmd.AddCommand(versionCmd())

	execErr := rootCmd.ExecuteContext(ctx)

	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}

	// 終了コードが呼び出し元CIの成否となる
	if execErr != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pipectl version %s\n", version)
		},
	}
}
