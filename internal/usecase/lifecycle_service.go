// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"migration-pipeline-service/internal/domain"
)

// MigrationInspector は既知のマイグレーション一覧を取得するインターフェース。
type MigrationInspector interface {
	ListMigrations(ctx context.Context, target domain.Target) (domain.MigrationSnapshot, error)
}

// MigrationApplier は保留中マイグレーションを最新まで適用するインターフェース。
type MigrationApplier interface {
	ApplyPending(ctx context.Context, target domain.Target) (domain.MigrationName, error)
}

// MigrationReverter はデータベースを指定マイグレーションへ移動するインターフェース。
type MigrationReverter interface {
	RevertTo(ctx context.Context, target domain.Target, name domain.MigrationName) error
}

// TestRunner はテストスイートを実行するインターフェース。
// 戻り値は結果アーティファクトのパスで、スイートの失敗はエラーとして返る。
type TestRunner interface {
	Run(ctx context.Context) (string, error)
}

// LifecycleParams は1回のライフサイクル実行のパラメータ。
type LifecycleParams struct {
	Target            domain.Target
	SkipMigrations    bool // trueの場合、全ステップを実行せずに完了する
	RollbackOnFailure bool // テスト失敗時にベースラインへ戻すか
}

// LifecycleService はベースライン取得→適用→テスト→条件付きロールバックの
// プロトコルを所有するコントローラ。LifecycleRunはこのサービスだけが所有し、
// 実行をまたいで共有される状態は存在しない。
type LifecycleService struct {
	inspector MigrationInspector
	applier   MigrationApplier
	reverter  MigrationReverter
	tests     TestRunner
	tracer    trace.Tracer
}

// NewLifecycleService は新しいLifecycleServiceを生成する。
func NewLifecycleService(inspector MigrationInspector, applier MigrationApplier, reverter MigrationReverter, tests TestRunner) *LifecycleService {
	return &LifecycleService{
		inspector: inspector,
		applier:   applier,
		reverter:  reverter,
		tests:     tests,
		tracer:    otel.Tracer("usecase/lifecycle"),
	}
}

// Execute は1回のライフサイクルを実行する。
// ベースラインは必ず適用より前に取得する。適用後に取得するとベースラインが
// 適用後の状態と区別できなくなり、ロールバックが成立しない。
// ロールバックの成否はログに残るだけで、返るエラーは常に最初の失敗
// （テスト失敗または適用失敗）である。
func (s *LifecycleService) Execute(ctx context.Context, params LifecycleParams) (*domain.LifecycleRun, error) {
	run := domain.NewLifecycleRun()
	defer func() {
		run.FinishedAt = time.Now().UTC()
	}()

	ctx, span := s.tracer.Start(ctx, "lifecycle.execute", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("environment", params.Target.Environment),
	))
	defer span.End()

	logger := slog.With("run_id", run.ID, "environment", params.Target.Environment)

	if params.SkipMigrations {
		run.State = domain.LifecycleStateCompleted
		logger.InfoContext(ctx, "migrations skipped by configuration",
			"operation", "lifecycle",
		)
		return run, nil
	}

	// ベースライン取得
	baseline, err := s.captureBaseline(ctx, params.Target)
	if err != nil {
		logger.ErrorContext(ctx, "failed to capture baseline",
			"operation", "capture_baseline",
			"error", err,
		)
		return run, err
	}
	run.Baseline = baseline
	run.State = domain.LifecycleStateBaselineCaptured
	logger.InfoContext(ctx, "baseline captured",
		"operation", "capture_baseline",
		"baseline", string(baseline),
	)

	// 保留中マイグレーションの適用。
	// 失敗した場合はテストもロールバックも実行しない。ベースラインは
	// 未変更のまま残り、戻す対象が存在しない。
	applied, err := s.applyPending(ctx, params.Target)
	if err != nil {
		logger.ErrorContext(ctx, "failed to apply migrations",
			"operation", "apply_pending",
			"error", err,
		)
		return run, err
	}
	run.Applied = applied
	run.State = domain.LifecycleStateApplied
	logger.InfoContext(ctx, "migrations applied",
		"operation", "apply_pending",
		"applied", string(applied),
	)

	// テストスイートの実行
	artifactPath, testErr := s.runTests(ctx)
	run.ArtifactPath = artifactPath
	run.State = domain.LifecycleStateTestsRun
	if testErr == nil {
		run.TestsPassed = true
		run.State = domain.LifecycleStateCompleted
		logger.InfoContext(ctx, "tests passed",
			"operation", "run_tests",
			"artifact_path", artifactPath,
		)
		return run, nil
	}
	logger.ErrorContext(ctx, "tests failed",
		"operation", "run_tests",
		"artifact_path", artifactPath,
		"error", testErr,
	)

	// ロールバック方針の評価：フラグが有効かつベースラインが番兵値で
	// ない場合にのみロールバックする。
	if !params.RollbackOnFailure {
		run.State = domain.LifecycleStateCompleted
		logger.InfoContext(ctx, "rollback disabled, leaving migrations in place",
			"operation", "rollback",
		)
		return run, testErr
	}
	if run.Baseline == domain.NoBaseline {
		run.State = domain.LifecycleStateCompleted
		logger.InfoContext(ctx, "no baseline to roll back to, skipping rollback",
			"operation", "rollback",
		)
		return run, testErr
	}

	if revertErr := s.revertTo(ctx, params.Target, run.Baseline); revertErr != nil {
		// ロールバック自体の失敗は二次的な情報として記録し、
		// 報告するエラーは元のテスト失敗のままとする。
		run.State = domain.LifecycleStateRollbackFailed
		logger.ErrorContext(ctx, "rollback failed",
			"operation", "rollback",
			"target", string(run.Baseline),
			"error", revertErr,
		)
		return run, testErr
	}

	run.RolledBack = true
	run.State = domain.LifecycleStateRolledBack
	logger.InfoContext(ctx, "rolled back to baseline",
		"operation", "rollback",
		"target", string(run.Baseline),
	)
	return run, testErr
}

// captureBaseline は適用前の最後の非Pendingマイグレーションを取得する。
func (s *LifecycleService) captureBaseline(ctx context.Context, target domain.Target) (domain.MigrationName, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.capture_baseline")
	defer span.End()

	snapshot, err := s.inspector.ListMigrations(ctx, target)
	if err != nil {
		return domain.NoBaseline, err
	}
	return snapshot.LastNonPending(), nil
}

func (s *LifecycleService) applyPending(ctx context.Context, target domain.Target) (domain.MigrationName, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.apply")
	defer span.End()

	return s.applier.ApplyPending(ctx, target)
}

func (s *LifecycleService) runTests(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.test")
	defer span.End()

	return s.tests.Run(ctx)
}

func (s *LifecycleService) revertTo(ctx context.Context, target domain.Target, name domain.MigrationName) error {
	ctx, span := s.tracer.Start(ctx, "lifecycle.rollback", trace.WithAttributes(
		attribute.String("rollback.target", string(name)),
	))
	defer span.End()

	return s.reverter.RevertTo(ctx, target, name)
}
