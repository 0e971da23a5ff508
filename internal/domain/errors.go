package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEnvironmentRequired は対象環境名が未指定の場合のエラー。
	ErrEnvironmentRequired = errors.New("environment name is required")

	// ErrReleaseTagRequired はリリースのタグ名が未指定の場合のエラー。
	ErrReleaseTagRequired = errors.New("release tag name is required")

	// ErrRollbackTargetRequired はロールバック先が未指定の場合のエラー。
	ErrRollbackTargetRequired = errors.New("rollback target migration is required")
)

// CommandError は外部プロセスの起動失敗・非ゼロ終了・タイムアウトを表す。
type CommandError struct {
	Tool    string
	Args    []string
	Dir     string
	Timeout bool   // コンテキストの期限超過によって打ち切られた場合にtrue
	Stderr  string // 失敗したプロセスの標準エラー出力
	Err     error
}

// Error はエラーメッセージを返す。
func (e *CommandError) Error() string {
	cmdline := e.Tool
	if len(e.Args) > 0 {
		cmdline += " " + strings.Join(e.Args, " ")
	}
	if e.Timeout {
		return fmt.Sprintf("command %q timed out: %v", cmdline, e.Err)
	}
	return fmt.Sprintf("command %q failed: %v", cmdline, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsTimeout はエラーがコマンドのタイムアウトによるものか判定する。
func IsTimeout(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Timeout
}

// InspectionError はマイグレーション一覧の取得失敗を表す。
type InspectionError struct {
	Environment string
	Err         error
}

// Error はエラーメッセージを返す。
func (e *InspectionError) Error() string {
	return fmt.Sprintf("inspecting migrations for environment %q: %v", e.Environment, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *InspectionError) Unwrap() error {
	return e.Err
}

// ApplyError は保留中マイグレーションの適用失敗を表す。
type ApplyError struct {
	Environment string
	Err         error
}

// Error はエラーメッセージを返す。
func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying migrations for environment %q: %v", e.Environment, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// RollbackError は指定マイグレーションへのロールバック失敗を表す。
type RollbackError struct {
	Environment string
	Target      MigrationName
	Err         error
}

// Error はエラーメッセージを返す。
func (e *RollbackError) Error() string {
	return fmt.Sprintf("rolling back environment %q to migration %q: %v", e.Environment, e.Target, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// TestError はテストスイートの実行失敗を表す。
type TestError struct {
	ArtifactPath string // テスト結果アーティファクトのパス
	Err          error
}

// Error はエラーメッセージを返す。
func (e *TestError) Error() string {
	if e.ArtifactPath != "" {
		return fmt.Sprintf("test suite failed (results at %s): %v", e.ArtifactPath, e.Err)
	}
	return fmt.Sprintf("test suite failed: %v", e.Err)
}

// Unwrap は元のエラーを返す。
func (e *TestError) Unwrap() error {
	return e.Err
}
