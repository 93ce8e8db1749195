// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// MockService is a suture.Service for tests. It fails a configured number
// of times and then blocks until its context is canceled.
type MockService struct {
	name       string
	starts     atomic.Int32
	failures   atomic.Int32
	failBefore atomic.Int32
}

// NewMockService creates a MockService that never fails.
func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

// Serve implements suture.Service.
func (m *MockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	if m.failures.Add(1) <= m.failBefore.Load() {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

// SetFailCount makes the first n calls to Serve fail.
func (m *MockService) SetFailCount(n int) {
	m.failBefore.Store(int32(n))
}

// StartCount returns how many times Serve was called.
func (m *MockService) StartCount() int32 {
	return m.starts.Load()
}

func (m *MockService) String() string {
	return m.name
}
