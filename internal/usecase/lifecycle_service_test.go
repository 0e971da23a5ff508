package usecase

import (
	"context"
	"errors"
	"testing"

	"migration-pipeline-service/internal/domain"
)

// callRecorder はモック間で共有する呼び出し順の記録。
type callRecorder struct {
	calls []string
}

func (r *callRecorder) record(name string) {
	r.calls = append(r.calls, name)
}

func (r *callRecorder) indexOf(name string) int {
	for i, call := range r.calls {
		if call == name {
			return i
		}
	}
	return -1
}

// mockInspector はテスト用のモック。
type mockInspector struct {
	rec      *callRecorder
	snapshot domain.MigrationSnapshot
	err      error
}

func (m *mockInspector) ListMigrations(ctx context.Context, target domain.Target) (domain.MigrationSnapshot, error) {
	m.rec.record("inspect")
	return m.snapshot, m.err
}

// mockApplier はテスト用のモック。
type mockApplier struct {
	rec    *callRecorder
	result domain.MigrationName
	err    error
}

func (m *mockApplier) ApplyPending(ctx context.Context, target domain.Target) (domain.MigrationName, error) {
	m.rec.record("apply")
	if m.err != nil {
		return domain.NoBaseline, m.err
	}
	return m.result, nil
}

// mockReverter はテスト用のモック。
type mockReverter struct {
	rec     *callRecorder
	err     error
	targets []domain.MigrationName
}

func (m *mockReverter) RevertTo(ctx context.Context, target domain.Target, name domain.MigrationName) error {
	m.rec.record("revert")
	m.targets = append(m.targets, name)
	return m.err
}

// mockTestRunner はテスト用のモック。
type mockTestRunner struct {
	rec      *callRecorder
	artifact string
	err      error
}

func (m *mockTestRunner) Run(ctx context.Context) (string, error) {
	m.rec.record("test")
	return m.artifact, m.err
}

type lifecycleFixture struct {
	rec       *callRecorder
	inspector *mockInspector
	applier   *mockApplier
	reverter  *mockReverter
	tests     *mockTestRunner
	service   *LifecycleService
}

func newLifecycleFixture() *lifecycleFixture {
	rec := &callRecorder{}
	f := &lifecycleFixture{
		rec: rec,
		inspector: &mockInspector{
			rec: rec,
			snapshot: domain.MigrationSnapshot{
				{Name: "20230101_Init", Status: domain.MigrationStatusApplied},
				{Name: "20230215_AddTable", Status: domain.MigrationStatusPending},
			},
		},
		applier:  &mockApplier{rec: rec, result: "20230215_AddTable"},
		reverter: &mockReverter{rec: rec},
		tests:    &mockTestRunner{rec: rec, artifact: "./test-results"},
	}
	f.service = NewLifecycleService(f.inspector, f.applier, f.reverter, f.tests)
	return f
}

func defaultParams() LifecycleParams {
	return LifecycleParams{
		Target: domain.Target{
			Environment:      "staging",
			HomeDir:          "/repo",
			MigrationsFolder: "./src/Data",
			UseGlobalTool:    true,
		},
		RollbackOnFailure: true,
	}
}

func TestExecute_Success(t *testing.T) {
	f := newLifecycleFixture()

	run, err := f.service.Execute(context.Background(), defaultParams())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if run.State != domain.LifecycleStateCompleted {
		t.Errorf("state = %q, want %q", run.State, domain.LifecycleStateCompleted)
	}
	if run.Baseline != "20230101_Init" {
		t.Errorf("baseline = %q, want 20230101_Init", run.Baseline)
	}
	if run.Applied != "20230215_AddTable" {
		t.Errorf("applied = %q, want 20230215_AddTable", run.Applied)
	}
	if !run.TestsPassed {
		t.Error("expected TestsPassed")
	}
	if run.RolledBack {
		t.Error("rollback must not happen when tests pass")
	}
	if run.ArtifactPath != "./test-results" {
		t.Errorf("artifact path = %q", run.ArtifactPath)
	}
	if f.rec.indexOf("revert") != -1 {
		t.Error("reverter must not be invoked on success")
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Error("FinishedAt must not precede StartedAt")
	}
}

// ベースライン取得は適用より必ず先に行われる。
func TestExecute_BaselineCapturedBeforeApply(t *testing.T) {
	f := newLifecycleFixture()

	if _, err := f.service.Execute(context.Background(), defaultParams()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	inspect := f.rec.indexOf("inspect")
	apply := f.rec.indexOf("apply")
	if inspect == -1 || apply == -1 {
		t.Fatalf("expected both inspect and apply calls, got %v", f.rec.calls)
	}
	if inspect >= apply {
		t.Errorf("baseline capture must precede apply, call order: %v", f.rec.calls)
	}
}

func TestExecute_SkipMigrations(t *testing.T) {
	f := newLifecycleFixture()
	params := defaultParams()
	params.SkipMigrations = true

	run, err := f.service.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if run.State != domain.LifecycleStateCompleted {
		t.Errorf("state = %q, want %q", run.State, domain.LifecycleStateCompleted)
	}
	if len(f.rec.calls) != 0 {
		t.Errorf("no collaborator may run when migrations are skipped, got %v", f.rec.calls)
	}
}

func TestExecute_InspectionFailureStopsRun(t *testing.T) {
	f := newLifecycleFixture()
	f.inspector.err = &domain.InspectionError{Environment: "staging", Err: errors.New("exit status 1")}

	run, err := f.service.Execute(context.Background(), defaultParams())
	if err == nil {
		t.Fatal("expected an error")
	}

	var inspErr *domain.InspectionError
	if !errors.As(err, &inspErr) {
		t.Fatalf("expected InspectionError, got %T: %v", err, err)
	}
	if run.State != domain.LifecycleStateIdle {
		t.Errorf("state = %q, want %q", run.State, domain.LifecycleStateIdle)
	}
	for _, call := range []string{"apply", "test", "revert"} {
		if f.rec.indexOf(call) != -1 {
			t.Errorf("%s must never run after a failed inspection", call)
		}
	}
}

func TestExecute_ApplyFailureSkipsTestsAndRollback(t *testing.T) {
	f := newLifecycleFixture()
	applyErr := &domain.ApplyError{Environment: "staging", Err: errors.New("exit status 1")}
	f.applier.err = applyErr

	run, err := f.service.Execute(context.Background(), defaultParams())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, applyErr) {
		t.Errorf("expected the apply error, got %v", err)
	}

	if run.State != domain.LifecycleStateBaselineCaptured {
		t.Errorf("state = %q, want %q", run.State, domain.LifecycleStateBaselineCaptured)
	}
	for _, call := range []string{"test", "revert"} {
		if f.rec.indexOf(call) != -1 {
			t.Errorf("%s must never run after a failed apply", call)
		}
	}
}

// ロールバックは「テスト失敗 ∧ フラグ有効 ∧ ベースラインが番兵値でない」
// 場合にのみ行われる。4通りの組み合わせをすべて検証する。
func TestExecute_RollbackPolicy(t *testing.T) {
	sentinelSnapshot := domain.MigrationSnapshot{
		{Name: "20230101_Init", Status: domain.MigrationStatusPending},
	}

	tests := []struct {
		name         string
		rollbackFlag bool
		snapshot     domain.MigrationSnapshot
		wantRevert   bool
		wantState    domain.LifecycleState
	}{
		{
			name:         "flag on, baseline present",
			rollbackFlag: true,
			wantRevert:   true,
			wantState:    domain.LifecycleStateRolledBack,
		},
		{
			name:         "flag on, baseline sentinel",
			rollbackFlag: true,
			snapshot:     sentinelSnapshot,
			wantRevert:   false,
			wantState:    domain.LifecycleStateCompleted,
		},
		{
			name:         "flag off, baseline present",
			rollbackFlag: false,
			wantRevert:   false,
			wantState:    domain.LifecycleStateCompleted,
		},
		{
			name:         "flag off, baseline sentinel",
			rollbackFlag: false,
			snapshot:     sentinelSnapshot,
			wantRevert:   false,
			wantState:    domain.LifecycleStateCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLifecycleFixture()
			if tt.snapshot != nil {
				f.inspector.snapshot = tt.snapshot
			}
			testErr := &domain.TestError{ArtifactPath: "./test-results", Err: errors.New("exit status 1")}
			f.tests.err = testErr

			params := defaultParams()
			params.RollbackOnFailure = tt.rollbackFlag

			run, err := f.service.Execute(context.Background(), params)

			// ロールバックの成否に関わらず、返るのは元のテスト失敗
			if !errors.Is(err, testErr) {
				t.Errorf("expected the original test failure, got %v", err)
			}

			reverted := f.rec.indexOf("revert") != -1
			if reverted != tt.wantRevert {
				t.Errorf("revert invoked = %v, want %v", reverted, tt.wantRevert)
			}
			if run.State != tt.wantState {
				t.Errorf("state = %q, want %q", run.State, tt.wantState)
			}
			if run.TestsPassed {
				t.Error("TestsPassed must be false")
			}
		})
	}
}

func TestExecute_RollbackTargetsBaseline(t *testing.T) {
	f := newLifecycleFixture()
	f.tests.err = &domain.TestError{Err: errors.New("exit status 1")}

	if _, err := f.service.Execute(context.Background(), defaultParams()); err == nil {
		t.Fatal("expected an error")
	}

	if len(f.reverter.targets) != 1 {
		t.Fatalf("expected 1 revert call, got %d", len(f.reverter.targets))
	}
	if f.reverter.targets[0] != "20230101_Init" {
		t.Errorf("revert target = %q, want 20230101_Init", f.reverter.targets[0])
	}
}

func TestExecute_RollbackFailurePreservesTestError(t *testing.T) {
	f := newLifecycleFixture()
	testErr := &domain.TestError{Err: errors.New("exit status 1")}
	f.tests.err = testErr
	f.reverter.err = &domain.RollbackError{
		Environment: "staging",
		Target:      "20230101_Init",
		Err:         errors.New("exit status 1"),
	}

	run, err := f.service.Execute(context.Background(), defaultParams())

	// ロールバックのエラーでテスト失敗を覆い隠さない
	if !errors.Is(err, testErr) {
		t.Errorf("expected the original test failure, got %v", err)
	}
	var rbErr *domain.RollbackError
	if errors.As(err, &rbErr) {
		t.Error("the rollback error must not replace the test failure")
	}

	if run.State != domain.LifecycleStateRollbackFailed {
		t.Errorf("state = %q, want %q", run.State, domain.LifecycleStateRollbackFailed)
	}
	if run.RolledBack {
		t.Error("RolledBack must be false when the revert fails")
	}
}

func TestExecute_NoPendingMigrations(t *testing.T) {
	f := newLifecycleFixture()
	f.inspector.snapshot = domain.MigrationSnapshot{
		{Name: "20230101_Init", Status: domain.MigrationStatusApplied},
	}
	f.applier.result = "20230101_Init"

	run, err := f.service.Execute(context.Background(), defaultParams())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if run.Baseline != "20230101_Init" {
		t.Errorf("baseline = %q, want 20230101_Init", run.Baseline)
	}
	if run.Applied != "20230101_Init" {
		t.Errorf("applied = %q, want 20230101_Init", run.Applied)
	}
}
