// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package readiness

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is a readiness level reached by a Machine.
type State int

const (
	Unstarted State = iota
	ProcessReady
	AuthReady
	Failed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case ProcessReady:
		return "process_ready"
	case AuthReady:
		return "auth_ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a wait is requested from a state
// that does not allow it.
var ErrInvalidTransition = errors.New("invalid readiness transition")

// Machine tracks the two liveness levels of one server. The authenticated
// level can only be awaited once the process level has been reached, and a
// timeout at either level is terminal.
type Machine struct {
	mu      sync.Mutex
	state   State
	prober  *Prober
	process Probe
	auth    Probe
	budget  Budget
}

// NewMachine creates a Machine in the Unstarted state.
func NewMachine(prober *Prober, process, auth Probe, budget Budget) *Machine {
	return &Machine{
		state:   Unstarted,
		prober:  prober,
		process: process,
		auth:    auth,
		budget:  budget,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AwaitProcess waits for the process level. Allowed from Unstarted and
// ProcessReady.
func (m *Machine) AwaitProcess(ctx context.Context) error {
	if err := m.guard(Unstarted, ProcessReady); err != nil {
		return err
	}
	return m.await(ctx, m.process, ProcessReady)
}

// AwaitAuth waits for the authenticated level. Requires ProcessReady; a
// Machine already in AuthReady returns immediately.
func (m *Machine) AwaitAuth(ctx context.Context) error {
	if m.State() == AuthReady {
		return nil
	}
	if err := m.guard(ProcessReady); err != nil {
		return err
	}
	return m.await(ctx, m.auth, AuthReady)
}

// AwaitReady runs both levels in order, skipping any already reached.
func (m *Machine) AwaitReady(ctx context.Context) error {
	if m.State() == Unstarted {
		if err := m.AwaitProcess(ctx); err != nil {
			return err
		}
	}
	return m.AwaitAuth(ctx)
}

// Reset returns to Unstarted after the server was restarted. Failed cannot
// be reset.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Failed {
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, m.state)
	}
	m.state = Unstarted
	return nil
}

func (m *Machine) guard(allowed ...State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range allowed {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot wait from %s", ErrInvalidTransition, m.state)
}

func (m *Machine) await(ctx context.Context, probe Probe, target State) error {
	err := m.prober.WaitUntilReachable(ctx, probe, m.budget.MaxAttempts, m.budget.Interval)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = Failed
		return err
	}
	m.state = target
	return nil
}
