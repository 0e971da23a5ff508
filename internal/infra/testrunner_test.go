package infra

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"migration-pipeline-service/internal/domain"
)

// mockCommandRunner はテスト用のモックランナー。
type mockCommandRunner struct {
	commands []Command
	out      string
	err      error
}

func (m *mockCommandRunner) Run(ctx context.Context, cmd Command) (string, error) {
	m.commands = append(m.commands, cmd)
	return m.out, m.err
}

func TestDotnetTestRunner_Run(t *testing.T) {
	runner := &mockCommandRunner{}
	tests := NewDotnetTestRunner(runner, "./tests/App.Tests", "./test-results", time.Minute)

	artifact, err := tests.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if artifact != "./test-results" {
		t.Errorf("artifact = %q, want ./test-results", artifact)
	}

	if len(runner.commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(runner.commands))
	}
	cmd := runner.commands[0]
	if cmd.Tool != "dotnet" {
		t.Errorf("tool = %q, want dotnet", cmd.Tool)
	}
	want := "test ./tests/App.Tests --logger trx --results-directory ./test-results"
	if got := strings.Join(cmd.Args, " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestDotnetTestRunner_NoProject(t *testing.T) {
	runner := &mockCommandRunner{}
	tests := NewDotnetTestRunner(runner, "", "./test-results", time.Minute)

	if _, err := tests.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := runner.commands[0].Args[1]; got != "--logger" {
		t.Errorf("expected no project argument, second arg = %q", got)
	}
}

func TestDotnetTestRunner_Failure(t *testing.T) {
	runner := &mockCommandRunner{
		err: &domain.CommandError{Tool: "dotnet", Err: errors.New("exit status 1")},
	}
	tests := NewDotnetTestRunner(runner, "", "./test-results", time.Minute)

	artifact, err := tests.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}

	var testErr *domain.TestError
	if !errors.As(err, &testErr) {
		t.Fatalf("expected TestError, got %T: %v", err, err)
	}
	if testErr.ArtifactPath != "./test-results" {
		t.Errorf("artifact path = %q, want ./test-results", testErr.ArtifactPath)
	}
	if artifact != "./test-results" {
		t.Errorf("artifact = %q, results must be reported even on failure", artifact)
	}
}
