package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewChecker(t *testing.T) {
	checker := NewChecker("evaluator", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "canary ok"}
	})

	if checker.Name() != "evaluator" {
		t.Errorf("Name() = %v, want evaluator", checker.Name())
	}
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy || result.Message != "canary ok" {
		t.Errorf("Check() = %+v", result)
	}
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck("store", func(ctx context.Context) error { return nil })
	if got := ok.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("Status = %v, want healthy", got)
	}

	failing := PingCheck("store", func(ctx context.Context) error { return errors.New("locked") })
	result := failing.Check(context.Background())
	if result.Status != StatusUnhealthy || result.Message != "locked" {
		t.Errorf("Check() = %+v", result)
	}
}

func TestRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unknown counts as degraded", []Status{StatusHealthy, ""}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry("pascal", "1.0.0")
			for i, s := range tt.statuses {
				s := s
				registry.RegisterFunc(string(rune('a'+i)), func(ctx context.Context) CheckResult {
					return CheckResult{Status: s}
				})
			}

			report := registry.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if report.Healthy() != (tt.want == StatusHealthy) {
				t.Errorf("Healthy() = %v", report.Healthy())
			}
			if len(report.Checks) != len(tt.statuses) {
				t.Errorf("len(Checks) = %d, want %d", len(report.Checks), len(tt.statuses))
			}
		})
	}
}

func TestRegistry_ChecksSortedAndNamed(t *testing.T) {
	registry := NewRegistry("pascal", "1.0.0")
	registry.RegisterFunc("store", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	registry.RegisterFunc("evaluator", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})

	report := registry.Check(context.Background())
	if report.Checks[0].Name != "evaluator" || report.Checks[1].Name != "store" {
		t.Errorf("checks not sorted: %+v", report.Checks)
	}
	if report.Service != "pascal" || report.Version != "1.0.0" {
		t.Errorf("report = %s", report)
	}
	for _, c := range report.Checks {
		if c.Timestamp.IsZero() {
			t.Errorf("check %s has no timestamp", c.Name)
		}
	}
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry("pascal", "1.0.0")
	registry.Register(PingCheck("store", func(ctx context.Context) error { return errors.New("down") }))

	if registry.Check(context.Background()).Status != StatusUnhealthy {
		t.Fatal("expected unhealthy before Unregister")
	}
	registry.Unregister("store")
	if registry.Check(context.Background()).Status != StatusHealthy {
		t.Error("expected healthy after Unregister")
	}
}

func TestRegistry_ConcurrentChecks(t *testing.T) {
	registry := NewRegistry("pascal", "1.0.0")
	var calls int32
	for _, name := range []string{"a", "b", "c"} {
		registry.RegisterFunc(name, func(ctx context.Context) CheckResult {
			atomic.AddInt32(&calls, 1)
			time.Sleep(50 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		})
	}

	start := time.Now()
	registry.CheckWithTimeout(time.Second)
	if elapsed := time.Since(start); elapsed > 120*time.Millisecond {
		t.Errorf("checks ran sequentially: %v", elapsed)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
