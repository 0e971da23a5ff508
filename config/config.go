// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Environment           string        // 対象アプリ環境名
	HomeDir               string        // ツール実行時の作業ディレクトリ
	MigrationsFolder      string        // マイグレーション定義を含むプロジェクト
	UseGlobalTool         bool          // マシングローバルのツールを使うか
	RollbackOnTestFailure bool          // テスト失敗時にベースラインへ戻すか
	SkipMigrations        bool          // マイグレーションステップ全体を飛ばすか
	TestProject           string        // テストプロジェクトのパス
	TestResultsDir        string        // テスト結果アーティファクトの出力先
	CommandTimeout        time.Duration // 外部コマンド1回あたりの上限時間
	GitHubAPIURL          string
	GitHubRepository      string // "owner/name" 形式
	GitHubToken           string
	LogLevel              string
	OtelEnabled           bool
	OtelEndpoint          string
	OtelServiceName       string
	OtelSamplingRate      float64
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	return &Config{
		Environment:           os.Getenv("PIPELINE_ENVIRONMENT"),
		HomeDir:               getEnv("PIPELINE_HOME", "."),
		MigrationsFolder:      getEnv("MIGRATIONS_FOLDER", "./migrations"),
		UseGlobalTool:         getEnvBool("USE_GLOBAL_TOOL", true),
		RollbackOnTestFailure: getEnvBool("ROLLBACK_ON_TEST_FAILURE", true),
		SkipMigrations:        getEnvBool("SKIP_MIGRATIONS", false),
		TestProject:           os.Getenv("TEST_PROJECT"),
		TestResultsDir:        getEnv("TEST_RESULTS_DIR", "./test-results"),
		CommandTimeout:        getEnvDuration("COMMAND_TIMEOUT", 10*time.Minute),
		GitHubAPIURL:          getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubRepository:      os.Getenv("GITHUB_REPOSITORY"),
		GitHubToken:           os.Getenv("GITHUB_TOKEN"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		OtelEnabled:           getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:          getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:       getEnv("OTEL_SERVICE_NAME", "migration-pipeline-service"),
		OtelSamplingRate:      getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}
