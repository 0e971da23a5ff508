package domain

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleState はライフサイクル実行の状態を表す
type LifecycleState string

const (
	LifecycleStateIdle             LifecycleState = "idle"
	LifecycleStateBaselineCaptured LifecycleState = "baseline_captured"
	LifecycleStateApplied          LifecycleState = "applied"
	LifecycleStateTestsRun         LifecycleState = "tests_run"
	LifecycleStateCompleted        LifecycleState = "completed"
	LifecycleStateRolledBack       LifecycleState = "rolled_back"
	LifecycleStateRollbackFailed   LifecycleState = "rollback_failed"
)

// LifecycleRun は1回の実行に対するControllerの一時的な記録。
// 実行の開始時に生成され、終了時に破棄される。実行をまたいで永続化しない。
type LifecycleRun struct {
	ID           string         // ログ・トレースの相関に使う実行ID
	State        LifecycleState // 現在の状態
	Baseline     MigrationName  // 適用前に観測した最後の非Pendingマイグレーション
	Applied      MigrationName  // 適用後に最新となったマイグレーション
	TestsPassed  bool           // テストスイートが成功したか
	RolledBack   bool           // ベースラインへのロールバックが成功したか
	ArtifactPath string         // テスト結果アーティファクトのパス
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewLifecycleRun は新しいLifecycleRunを生成する。
func NewLifecycleRun() *LifecycleRun {
	return &LifecycleRun{
		ID:        uuid.New().String(),
		State:     LifecycleStateIdle,
		Baseline:  NoBaseline,
		Applied:   NoBaseline,
		StartedAt: time.Now().UTC(),
	}
}
