package deploy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"deployd/internal/platform/config"
	"deployd/internal/platform/models"
)

type memRecorder struct {
	mu   sync.Mutex
	runs []*models.DeployRun
}

func (m *memRecorder) Create(run *models.DeployRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = "dep_test"
	m.runs = append(m.runs, run)
	return nil
}

func TestServiceTriggerRecordsRun(t *testing.T) {
	recorder := &memRecorder{}
	svc := NewService(NewRunner(), recorder)
	app := config.AppConfig{Name: "email_sender", RunArgs: []string{"sh", "-c", "echo ok"}}

	run, err := svc.Trigger(context.Background(), app, "127.0.0.1")
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if !run.Success {
		t.Errorf("run failed: %s", run.Error)
	}
	if run.App != "email_sender" || run.RemoteAddr != "127.0.0.1" {
		t.Errorf("unexpected run: %+v", run)
	}

	if len(recorder.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(recorder.runs))
	}
}

func TestServiceTriggerRecordsFailure(t *testing.T) {
	recorder := &memRecorder{}
	svc := NewService(NewRunner(), recorder)
	app := config.AppConfig{Name: "bad", RunArgs: []string{"sh", "-c", "echo broken 1>&2"}}

	run, err := svc.Trigger(context.Background(), app, "")
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if run.Success {
		t.Fatal("expected failed run")
	}
	if run.Error == "" {
		t.Error("expected run.Error to be set")
	}
}

func TestServiceRejectsConcurrentTrigger(t *testing.T) {
	svc := NewService(NewRunner(), &memRecorder{})
	app := config.AppConfig{Name: "slow", RunArgs: []string{"sleep", "2"}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Trigger(context.Background(), app, "")
	}()

	// Probe with a fast command under the same app name until the
	// first trigger holds the lock.
	probe := config.AppConfig{Name: "slow", RunArgs: []string{"sh", "-c", "true"}}
	var second error
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, err := svc.Trigger(context.Background(), probe, "")
		if err != nil {
			second = err
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !errors.Is(second, ErrInProgress) {
		t.Errorf("second trigger error = %v, want ErrInProgress", second)
	}
	<-done
}

func TestServiceSeparateAppsRunIndependently(t *testing.T) {
	svc := NewService(NewRunner(), &memRecorder{})

	slow := config.AppConfig{Name: "slow", RunArgs: []string{"sleep", "1"}}
	fast := config.AppConfig{Name: "fast", RunArgs: []string{"sh", "-c", "echo ok"}}

	go svc.Trigger(context.Background(), slow, "")
	time.Sleep(100 * time.Millisecond)

	run, err := svc.Trigger(context.Background(), fast, "")
	if err != nil {
		t.Fatalf("fast Trigger() error: %v", err)
	}
	if !run.Success {
		t.Errorf("fast run failed: %s", run.Error)
	}
}
