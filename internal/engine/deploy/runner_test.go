package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"deployd/internal/platform/config"
)

func TestRunSuccess(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", "echo deploying; echo done"},
	}

	result := runner.Run(context.Background(), app)
	if !result.Success {
		t.Fatalf("expected success, got error: %v", result.Err)
	}
	if result.Elapsed <= 0 {
		t.Error("expected a positive elapsed time")
	}
}

func TestRunStderrFails(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", "echo ok; echo oops 1>&2"},
	}

	result := runner.Run(context.Background(), app)
	if result.Success {
		t.Fatal("expected stderr output to fail the deploy")
	}
	if !errors.Is(result.Err, ErrScriptStderr) {
		t.Errorf("result.Err = %v, want ErrScriptStderr", result.Err)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", "exit 3"},
	}

	result := runner.Run(context.Background(), app)
	if result.Success {
		t.Fatal("expected non-zero exit to fail the deploy")
	}
	if result.Err == nil {
		t.Error("expected an error for non-zero exit")
	}
}

func TestRunMissingCommand(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"/no/such/command"},
	}

	result := runner.Run(context.Background(), app)
	if result.Success || result.Err == nil {
		t.Fatal("expected an error for a missing command")
	}
}

// Long single lines must not wedge the runner: the line scanner needs
// room beyond bufio's 64KB default, and once scanning stops the pipe
// still has to be drained or the child blocks writing and Wait never
// returns.
func TestRunLongOutputLine(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", `head -c 300000 /dev/zero | tr '\0' 'a'; echo; echo done`},
	}

	result := runWithWatchdog(t, runner, app)
	if !result.Success {
		t.Fatalf("expected success, got error: %v", result.Err)
	}
	output := result.Output
	if len(output) == 0 || output[len(output)-1] != "done" {
		t.Errorf("expected trailing 'done' line in output tail, got %v", output)
	}
}

func TestRunOverlongLineStillReturns(t *testing.T) {
	runner := NewRunner()
	// One line well past the scanner cap; the runner drains it and
	// the run completes.
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", `head -c 2100000 /dev/zero | tr '\0' 'a'; echo`},
	}

	result := runWithWatchdog(t, runner, app)
	if result.Err != nil && !errors.Is(result.Err, ErrScriptStderr) {
		t.Errorf("unexpected error: %v", result.Err)
	}
}

func TestRunOverlongStderrLineFails(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", `head -c 2100000 /dev/zero | tr '\0' 'a' 1>&2; echo`},
	}

	result := runWithWatchdog(t, runner, app)
	if result.Success {
		t.Fatal("expected overlong stderr output to fail the deploy")
	}
}

func runWithWatchdog(t *testing.T, runner *Runner, app config.AppConfig) Result {
	t.Helper()
	done := make(chan Result, 1)
	go func() {
		done <- runner.Run(context.Background(), app)
	}()
	select {
	case result := <-done:
		return result
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return; output pipe was not drained")
		return Result{}
	}
}

func TestRunOutputTailBounded(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sh", "-c", "i=1; while [ $i -le 25 ]; do echo line $i; i=$((i+1)); done"},
	}

	result := runner.Run(context.Background(), app)
	if !result.Success {
		t.Fatalf("expected success, got error: %v", result.Err)
	}
	if len(result.Output) != 20 {
		t.Fatalf("output tail has %d lines, want 20", len(result.Output))
	}
	if result.Output[19] != "line 25" {
		t.Errorf("last tail line = %q, want 'line 25'", result.Output[19])
	}
	if result.Output[0] != "line 6" {
		t.Errorf("first tail line = %q, want 'line 6'", result.Output[0])
	}
}

func TestRunTimeout(t *testing.T) {
	runner := NewRunner()
	app := config.AppConfig{
		Name:    "test",
		RunArgs: []string{"sleep", "10"},
		Timeout: 100 * time.Millisecond,
	}

	start := time.Now()
	result := runner.Run(context.Background(), app)
	if result.Success {
		t.Fatal("expected timeout to fail the deploy")
	}
	if !errors.Is(result.Err, context.DeadlineExceeded) {
		t.Errorf("result.Err = %v, want context.DeadlineExceeded", result.Err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("runner did not honor the timeout")
	}
}
