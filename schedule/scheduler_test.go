// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/testutil"
)

func newScheduler(t *testing.T, at time.Time) (*Scheduler, *Evaluator, *remote.SQLStore) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := remote.NewSQLStore(db, "sqlite")
	err := store.Write(context.Background(), remote.Join(OwnersPath(models.ServiceMess), "u1", "profile", "messStatus"), false)
	if err != nil {
		t.Fatal(err)
	}
	durable, err := prefs.NewDurable(db, "admin")
	if err != nil {
		t.Fatal(err)
	}
	eval := NewEvaluator(store, prefs.NewEphemeral())
	s := NewScheduler(eval, store, durable, Options{
		Interval: time.Minute,
		Location: time.UTC,
		Now:      func() time.Time { return at },
	})
	return s, eval, store
}

func lunchtime() time.Time {
	return time.Date(2025, 3, 4, 12, 30, 0, 0, time.UTC)
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	s, _, store := newScheduler(t, lunchtime())

	decisions := s.RunOnce(ctx)
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	for _, d := range decisions {
		switch d.ServiceType {
		case models.ServiceMess:
			if d.Action != ActionApplied || !d.ShouldBeOpen {
				t.Errorf("mess decision = %+v", d)
			}
		case models.ServiceCanteen:
			if d.Action != ActionUnchanged || d.ShouldBeOpen {
				t.Errorf("canteen decision = %+v", d)
			}
		}
	}

	snap, err := store.Read(ctx, StatusPath(models.ServiceMess, "u1"))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Value != true {
		t.Errorf("mess owner status = %v, want true", snap.Value)
	}
}

func TestRunOnce_Disabled(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newScheduler(t, lunchtime())

	if !s.Enabled(ctx) {
		t.Fatal("scheduler should default to enabled")
	}
	if err := s.SetEnabled(ctx, false); err != nil {
		t.Fatal(err)
	}
	if s.Enabled(ctx) {
		t.Fatal("scheduler should be disabled")
	}
	if d := s.RunOnce(ctx); d != nil {
		t.Errorf("disabled scheduler evaluated: %+v", d)
	}
}

func TestSetEnabled_ClearsOverrides(t *testing.T) {
	ctx := context.Background()
	s, eval, _ := newScheduler(t, lunchtime())

	if err := eval.Override(ctx, models.ServiceMess); err != nil {
		t.Fatal(err)
	}
	if err := eval.Override(ctx, models.ServiceCanteen); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEnabled(ctx, true); err != nil {
		t.Fatal(err)
	}

	mess, _ := eval.RunState(ctx, models.ServiceMess)
	if mess != StateOn {
		t.Errorf("mess run state = %q, want ON", mess)
	}
	canteen, _ := eval.RunState(ctx, models.ServiceCanteen)
	if canteen != StateUnset {
		t.Errorf("canteen run state = %q, want unset", canteen)
	}
}

func TestSaveSettings(t *testing.T) {
	ctx := context.Background()
	s, eval, store := newScheduler(t, lunchtime())

	err := s.SaveSettings(ctx, models.SchedulerSettings{
		MessSchedule: []models.ClockWindow{{Start: "20:00", End: "02:00"}},
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if snap, _ := store.Read(ctx, SettingsPath); snap.Exists() {
		t.Error("invalid settings were stored")
	}

	// Move mess lunch so 12:30 is closed; the first evaluation after
	// saving leaves owners closed.
	err = s.SaveSettings(ctx, models.SchedulerSettings{
		MessSchedule: []models.ClockWindow{{Start: "13:00", End: "15:00"}},
	})
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got := s.Windows(models.ServiceMess)
	if len(got) != 1 || got[0] != (Window{Start: 13, End: 15}) {
		t.Errorf("mess windows = %v", got)
	}
	if c := s.Windows(models.ServiceCanteen); len(c) != len(CanteenDefaults) {
		t.Errorf("canteen windows should keep defaults, got %v", c)
	}
	state, _ := eval.RunState(ctx, models.ServiceMess)
	if state != StateUnset {
		t.Errorf("mess run state = %q, want unset", state)
	}

	var stored models.SchedulerSettings
	snap, err := store.Read(ctx, SettingsPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := snap.Decode(&stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.MessSchedule) != 1 || stored.MessSchedule[0].Start != "13:00" {
		t.Errorf("stored settings = %+v", stored)
	}
}

func TestRun_EvaluatesEagerlyAndFollowsSettings(t *testing.T) {
	s, eval, store := newScheduler(t, lunchtime())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		state, _ := eval.RunState(context.Background(), models.ServiceMess)
		if state == StateOn {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not evaluate on start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A settings change from another writer reaches the running loop.
	err := store.Write(context.Background(), SettingsPath, models.SchedulerSettings{
		CanteenSchedule: []models.ClockWindow{{Start: "12:00", End: "14:00"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := s.Windows(models.ServiceCanteen)
	if len(got) != 1 || got[0] != (Window{Start: 12, End: 14}) {
		t.Errorf("canteen windows = %v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newScheduler(t, lunchtime())
	s.RunOnce(ctx)

	status := s.Status(ctx)
	if !status.Enabled {
		t.Error("expected enabled")
	}
	if status.Interval != "1m0s" {
		t.Errorf("interval = %q", status.Interval)
	}
	if status.LastTransition == nil || status.LastChangedAgo == "" {
		t.Errorf("expected last transition, got %+v", status)
	}
	mess := status.Services[models.ServiceMess]
	if mess.RunState != "ON" || !mess.Toggle || !mess.ShouldBeOpen {
		t.Errorf("mess status = %+v", mess)
	}
	if len(mess.Windows) != 2 || mess.Windows[0].Start != "11:00" {
		t.Errorf("mess windows = %+v", mess.Windows)
	}
	canteen := status.Services[models.ServiceCanteen]
	if canteen.RunState != "" || canteen.ShouldBeOpen {
		t.Errorf("canteen status = %+v", canteen)
	}
}
