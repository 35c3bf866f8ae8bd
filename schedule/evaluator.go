// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
)

// RunState is the scheduler's session-scoped memory for one service type.
type RunState string

const (
	StateUnset    RunState = ""
	StateOn       RunState = "ON"
	StateOff      RunState = "OFF"
	StateOverride RunState = "MANUAL_OVERRIDE"
)

// IsOpen is the status implied by the state. Unset implies closed.
func (s RunState) IsOpen() bool {
	return s == StateOn
}

func stateFor(open bool) RunState {
	if open {
		return StateOn
	}
	return StateOff
}

func runStateKey(serviceType string) string {
	return "autoStatus_" + serviceType
}

// OwnersPath is the subtree holding every owner of a service type.
func OwnersPath(serviceType string) string {
	return serviceType + "Owners"
}

// StatusPath is an owner's open/closed flag.
func StatusPath(serviceType, uid string) string {
	return remote.Join(OwnersPath(serviceType), uid, "profile", "messStatus")
}

// Action records what an evaluation did.
type Action string

const (
	ActionSkipped   Action = "skipped_override"
	ActionUnchanged Action = "unchanged"
	ActionApplied   Action = "applied"
	ActionFailed    Action = "failed"
)

type Decision struct {
	ServiceType  string
	ShouldBeOpen bool
	Action       Action
	Owners       int
}

// Evaluator applies operating windows to owner status without fighting
// a manual override. Run states live in the session store; calls are
// serialized.
type Evaluator struct {
	store   remote.Store
	session prefs.Store

	mu             sync.Mutex
	toggles        map[string]bool
	lastTransition time.Time
}

func NewEvaluator(store remote.Store, session prefs.Store) *Evaluator {
	return &Evaluator{
		store:   store,
		session: session,
		toggles: make(map[string]bool),
	}
}

// Evaluate decides whether serviceType should be open at hour and, when
// that differs from the last applied state, writes every owner's status
// in one combined update.
func (e *Evaluator) Evaluate(ctx context.Context, serviceType string, windows []Window, hour float64) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := Decision{ServiceType: serviceType, ShouldBeOpen: ShouldBeOpen(windows, hour)}

	last, err := e.runState(ctx, serviceType)
	if err != nil {
		slog.Error("failed to read scheduler state", "type", serviceType, "error", err)
		d.Action = ActionFailed
		return d
	}
	if last == StateOverride {
		d.Action = ActionSkipped
		return d
	}
	if last.IsOpen() == d.ShouldBeOpen {
		d.Action = ActionUnchanged
		return d
	}

	next := stateFor(d.ShouldBeOpen)
	slog.Info("scheduler changing status", "type", serviceType, "state", string(next))

	n, err := e.setAll(ctx, serviceType, d.ShouldBeOpen)
	if err != nil {
		// Run state stays stale so the next tick retries.
		slog.Error("automatic status update failed", "type", serviceType, "error", err)
		d.Action = ActionFailed
		return d
	}
	if err := e.session.SetItem(ctx, runStateKey(serviceType), string(next)); err != nil {
		slog.Error("failed to record scheduler state", "type", serviceType, "error", err)
	}
	e.toggles[serviceType] = d.ShouldBeOpen
	e.lastTransition = time.Now()

	d.Action = ActionApplied
	d.Owners = n
	return d
}

// SetManually is a human flipping the master switch: the service type is
// put under manual override first, then every owner gets the new status.
func (e *Evaluator) SetManually(ctx context.Context, serviceType string, open bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.override(ctx, serviceType); err != nil {
		return 0, err
	}
	n, err := e.setAll(ctx, serviceType, open)
	if err != nil {
		return 0, err
	}
	e.toggles[serviceType] = open
	return n, nil
}

// Override suppresses automatic changes for serviceType until Resume.
func (e *Evaluator) Override(ctx context.Context, serviceType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.override(ctx, serviceType)
}

func (e *Evaluator) override(ctx context.Context, serviceType string) error {
	slog.Info("manual override, scheduler paused for this session", "type", serviceType)
	return e.session.SetItem(ctx, runStateKey(serviceType), string(StateOverride))
}

// Resume clears every run state so the next evaluation is free to act.
func (e *Evaluator) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range models.ServiceTypes {
		if err := e.session.RemoveItem(ctx, runStateKey(t)); err != nil {
			return err
		}
	}
	return nil
}

// RunState returns the stored state for serviceType.
func (e *Evaluator) RunState(ctx context.Context, serviceType string) (RunState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runState(ctx, serviceType)
}

func (e *Evaluator) runState(ctx context.Context, serviceType string) (RunState, error) {
	v, _, err := e.session.GetItem(ctx, runStateKey(serviceType))
	if err != nil {
		return StateUnset, err
	}
	return RunState(v), nil
}

// Toggle is the last position the master switch for serviceType was set
// to, by the scheduler or by hand.
func (e *Evaluator) Toggle(serviceType string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toggles[serviceType]
}

func (e *Evaluator) LastTransition() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTransition
}

// setAll writes the status of every owner of serviceType in one update.
func (e *Evaluator) setAll(ctx context.Context, serviceType string, open bool) (int, error) {
	owners, err := e.store.Read(ctx, OwnersPath(serviceType))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s owners: %w", serviceType, err)
	}

	updates := make(map[string]any)
	for _, uid := range owners.Keys() {
		updates[StatusPath(serviceType, uid)] = open
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := e.store.Update(ctx, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}
