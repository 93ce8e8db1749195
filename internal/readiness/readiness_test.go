// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package readiness

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/logging"
)

// scriptedProbe fails its first failures checks, then succeeds.
type scriptedProbe struct {
	level    string
	failures int
	calls    int
}

func (p *scriptedProbe) Level() string { return p.level }

func (p *scriptedProbe) Check(ctx context.Context) error {
	p.calls++
	if p.failures < 0 || p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

// endpointFunc adapts a function to Endpoint.
type endpointFunc func(ctx context.Context, path string, authenticated bool) (int, []byte, error)

func (f endpointFunc) Probe(ctx context.Context, path string, authenticated bool) (int, []byte, error) {
	return f(ctx, path, authenticated)
}

func TestWaitUntilReachable_SucceedsAfterFailures(t *testing.T) {
	sleeper := &FakeSleeper{}
	probe := &scriptedProbe{level: LevelProcess, failures: 3}

	err := NewProber(sleeper).WaitUntilReachable(context.Background(), probe, 30, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probe.calls != 4 {
		t.Errorf("calls: expected 4, got %d", probe.calls)
	}
	if sleeper.Elapsed() != 6*time.Second {
		t.Errorf("elapsed: expected 6s, got %s", sleeper.Elapsed())
	}
}

func TestWaitUntilReachable_LogsReadinessLevelField(t *testing.T) {
	previous := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	var buf bytes.Buffer
	ctx := logging.ContextWithLogger(context.Background(), logging.NewTestLogger(&buf))
	probe := &scriptedProbe{level: LevelProcess, failures: 1}

	if err := NewProber(&FakeSleeper{}).WaitUntilReachable(ctx, probe, 3, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a failure line and a ready line, got:\n%s", buf.String())
	}
	wantLevels := []string{`"level":"debug"`, `"level":"info"`}
	for i, line := range lines {
		if n := strings.Count(line, `"level":`); n != 1 {
			t.Errorf("line %d has %d level keys: %s", i, n, line)
		}
		if !strings.Contains(line, wantLevels[i]) {
			t.Errorf("line %d: want %s, got %s", i, wantLevels[i], line)
		}
		if !strings.Contains(line, `"readiness_level":"process"`) {
			t.Errorf("line %d has no readiness_level field: %s", i, line)
		}
	}
}

func TestWaitUntilReachable_ImmediateSuccessDoesNotSleep(t *testing.T) {
	sleeper := &FakeSleeper{}
	err := NewProber(sleeper).WaitUntilReachable(context.Background(), &scriptedProbe{level: LevelAuth}, 30, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sleeper.Calls() != 0 {
		t.Errorf("sleep calls: expected 0, got %d", sleeper.Calls())
	}
}

func TestWaitUntilReachable_TimesOutAfterFullBudget(t *testing.T) {
	sleeper := &FakeSleeper{}
	probe := &scriptedProbe{level: LevelProcess, failures: -1}

	err := NewProber(sleeper).WaitUntilReachable(context.Background(), probe, 30, 2*time.Second)
	if !errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("expected ErrReadinessTimeout, got %v", err)
	}
	if probe.calls != 30 {
		t.Errorf("calls: expected 30, got %d", probe.calls)
	}
	if sleeper.Elapsed() != 60*time.Second {
		t.Errorf("elapsed: expected 60s, got %s", sleeper.Elapsed())
	}
	if got := (Budget{MaxAttempts: 30, Interval: 2 * time.Second}).Total(); got != 60*time.Second {
		t.Errorf("Budget.Total: expected 60s, got %s", got)
	}
}

func TestWaitUntilReachable_RealSleeperBounded(t *testing.T) {
	start := time.Now()
	err := NewProber(nil).WaitUntilReachable(context.Background(), &scriptedProbe{level: LevelProcess, failures: -1}, 3, 20*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("expected ErrReadinessTimeout, got %v", err)
	}
	if elapsed < 60*time.Millisecond {
		t.Errorf("returned after %s, before the budget was spent", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("returned after %s, far past the budget", elapsed)
	}
}

func TestWaitUntilReachable_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewProber(&FakeSleeper{}).WaitUntilReachable(ctx, &scriptedProbe{level: LevelAuth, failures: -1}, 30, time.Second)
	if !errors.Is(err, ErrReadinessTimeout) {
		t.Errorf("expected ErrReadinessTimeout, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestProcessProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		err     error
		wantErr bool
	}{
		{"json ok", http.StatusOK, `{"Version":"10.10.7"}`, nil, false},
		{"json while starting", http.StatusServiceUnavailable, `{"Message":"starting"}`, nil, false},
		{"html placeholder", http.StatusServiceUnavailable, `<html>Jellyfin is starting</html>`, nil, true},
		{"empty body", http.StatusOK, ``, nil, true},
		{"transport error", 0, ``, errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := endpointFunc(func(ctx context.Context, path string, authenticated bool) (int, []byte, error) {
				if path != jellyfin.PathPublicSystemInfo {
					t.Errorf("path: expected %q, got %q", jellyfin.PathPublicSystemInfo, path)
				}
				if authenticated {
					t.Error("process probe must be unauthenticated")
				}
				return tt.status, []byte(tt.body), tt.err
			})
			err := ProcessProbe{Endpoint: ep}.Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"unauthorized", http.StatusUnauthorized, true},
		{"unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := endpointFunc(func(ctx context.Context, path string, authenticated bool) (int, []byte, error) {
				if !authenticated {
					t.Error("auth probe must be authenticated")
				}
				return tt.status, nil, nil
			})
			err := AuthProbe{Endpoint: ep}.Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProbes_AgainstHTTPServer(t *testing.T) {
	const token = "0123456789abcdef0123456789abcdef"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case jellyfin.PathPublicSystemInfo:
			_, _ = w.Write([]byte(`{"StartupWizardCompleted":true}`))
		case jellyfin.PathSystemConfiguration:
			if r.Header.Get("X-Emby-Token") != token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	good := jellyfin.New(jellyfin.Options{BaseURL: server.URL, Token: token})
	bad := jellyfin.New(jellyfin.Options{BaseURL: server.URL, Token: "wrong"})
	ctx := context.Background()

	if err := (ProcessProbe{Endpoint: bad}).Check(ctx); err != nil {
		t.Errorf("process probe: %v", err)
	}
	if err := (AuthProbe{Endpoint: good}).Check(ctx); err != nil {
		t.Errorf("auth probe with valid token: %v", err)
	}
	if err := (AuthProbe{Endpoint: bad}).Check(ctx); err == nil {
		t.Error("auth probe with invalid token should fail")
	}
}

func TestMachine_Transitions(t *testing.T) {
	budget := Budget{MaxAttempts: 5, Interval: time.Second}
	process := &scriptedProbe{level: LevelProcess, failures: 1}
	auth := &scriptedProbe{level: LevelAuth, failures: 2}
	m := NewMachine(NewProber(&FakeSleeper{}), process, auth, budget)
	ctx := context.Background()

	if m.State() != Unstarted {
		t.Fatalf("initial state: expected unstarted, got %s", m.State())
	}
	if err := m.AwaitAuth(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("AwaitAuth from unstarted: expected ErrInvalidTransition, got %v", err)
	}
	if auth.calls != 0 {
		t.Errorf("auth probe ran before process readiness")
	}

	if err := m.AwaitProcess(ctx); err != nil {
		t.Fatalf("AwaitProcess: %v", err)
	}
	if m.State() != ProcessReady {
		t.Fatalf("expected process_ready, got %s", m.State())
	}
	if err := m.AwaitAuth(ctx); err != nil {
		t.Fatalf("AwaitAuth: %v", err)
	}
	if m.State() != AuthReady {
		t.Fatalf("expected auth_ready, got %s", m.State())
	}
	if err := m.AwaitAuth(ctx); err != nil {
		t.Errorf("AwaitAuth from auth_ready should be a no-op, got %v", err)
	}
	if err := m.AwaitProcess(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("AwaitProcess from auth_ready: expected ErrInvalidTransition, got %v", err)
	}

	if err := m.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if m.State() != Unstarted {
		t.Errorf("after reset: expected unstarted, got %s", m.State())
	}
}

func TestMachine_FailedIsTerminal(t *testing.T) {
	m := NewMachine(NewProber(&FakeSleeper{}),
		&scriptedProbe{level: LevelProcess, failures: -1},
		&scriptedProbe{level: LevelAuth},
		Budget{MaxAttempts: 3, Interval: time.Second})
	ctx := context.Background()

	if err := m.AwaitReady(ctx); !errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("AwaitReady: expected ErrReadinessTimeout, got %v", err)
	}
	if m.State() != Failed {
		t.Fatalf("expected failed, got %s", m.State())
	}
	if err := m.AwaitProcess(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("AwaitProcess from failed: expected ErrInvalidTransition, got %v", err)
	}
	if err := m.Reset(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reset from failed: expected ErrInvalidTransition, got %v", err)
	}
}

func TestMachine_AwaitReadyBothLevels(t *testing.T) {
	m := NewMachine(NewProber(&FakeSleeper{}),
		&scriptedProbe{level: LevelProcess},
		&scriptedProbe{level: LevelAuth, failures: 1},
		Budget{MaxAttempts: 3, Interval: time.Second})

	if err := m.AwaitReady(context.Background()); err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
	if m.State() != AuthReady {
		t.Errorf("expected auth_ready, got %s", m.State())
	}
}
