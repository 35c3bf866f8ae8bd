// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
)

const (
	SettingsPath = "admin/schedulerSettings"
	EnabledKey   = "autoSchedulerEnabled"
)

// Options configures a Scheduler. Zero values fall back to a one minute
// interval, the local timezone and the wall clock.
type Options struct {
	Interval time.Duration
	Location *time.Location
	Now      func() time.Time
}

// Scheduler evaluates every service type on a fixed cadence and whenever
// the admin changes the operating windows.
type Scheduler struct {
	eval     *Evaluator
	store    remote.Store
	durable  prefs.Store
	interval time.Duration
	loc      *time.Location
	now      func() time.Time

	mu      sync.Mutex
	windows map[string][]Window

	trigger chan struct{}
}

func NewScheduler(eval *Evaluator, store remote.Store, durable prefs.Store, opts Options) *Scheduler {
	if opts.Interval <= 0 || opts.Interval > time.Minute {
		opts.Interval = time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Scheduler{
		eval:     eval,
		store:    store,
		durable:  durable,
		interval: opts.Interval,
		loc:      opts.Location,
		now:      opts.Now,
		windows:  make(map[string][]Window),
		trigger:  make(chan struct{}, 1),
	}
	for _, t := range models.ServiceTypes {
		s.windows[t] = Defaults(t)
	}
	return s
}

// Run loads the saved windows, evaluates once immediately and then on
// every tick or settings change until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	cancel, err := s.store.Subscribe(SettingsPath, s.onSettings)
	if err != nil {
		return fmt.Errorf("failed to watch scheduler settings: %w", err)
	}
	defer cancel()

	slog.Info("scheduler started", "interval", s.interval, "timezone", s.loc.String())
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.trigger:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates each service type at the current time. It returns
// nil when automation is disabled.
func (s *Scheduler) RunOnce(ctx context.Context) []Decision {
	if !s.Enabled(ctx) {
		return nil
	}

	hour := DecimalHour(s.now().In(s.loc))
	decisions := make([]Decision, 0, len(models.ServiceTypes))
	for _, t := range models.ServiceTypes {
		decisions = append(decisions, s.eval.Evaluate(ctx, t, s.Windows(t), hour))
	}
	return decisions
}

// Enabled reads the durable on/off switch. Unset means enabled.
func (s *Scheduler) Enabled(ctx context.Context) bool {
	v, ok, err := s.durable.GetItem(ctx, EnabledKey)
	if err != nil {
		slog.Warn("failed to read scheduler switch, assuming enabled", "error", err)
		return true
	}
	return !ok || v != "false"
}

// SetEnabled stores the switch. Turning automation on clears every
// manual override and evaluates right away.
func (s *Scheduler) SetEnabled(ctx context.Context, on bool) error {
	if err := s.durable.SetItem(ctx, EnabledKey, fmt.Sprintf("%t", on)); err != nil {
		return err
	}
	if !on {
		slog.Info("scheduler disabled")
		return nil
	}
	if err := s.eval.Resume(ctx); err != nil {
		return err
	}
	slog.Info("scheduler enabled, overrides cleared")
	s.RunOnce(ctx)
	return nil
}

// Resume clears manual overrides without touching the switch.
func (s *Scheduler) Resume(ctx context.Context) error {
	if err := s.eval.Resume(ctx); err != nil {
		return err
	}
	s.RunOnce(ctx)
	return nil
}

// SaveSettings validates and stores new windows, then evaluates with
// them.
func (s *Scheduler) SaveSettings(ctx context.Context, settings models.SchedulerSettings) error {
	parsed, err := parseSettings(settings)
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, SettingsPath, settings); err != nil {
		return fmt.Errorf("failed to save scheduler settings: %w", err)
	}
	s.apply(parsed)
	s.RunOnce(ctx)
	return nil
}

// Evaluator is the evaluator the scheduler drives, shared with manual
// master toggles.
func (s *Scheduler) Evaluator() *Evaluator {
	return s.eval
}

// Windows returns the active windows for serviceType.
func (s *Scheduler) Windows(serviceType string) []Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Window(nil), s.windows[serviceType]...)
}

func (s *Scheduler) Status(ctx context.Context) models.SchedulerStatus {
	hour := DecimalHour(s.now().In(s.loc))
	status := models.SchedulerStatus{
		Enabled:  s.Enabled(ctx),
		Interval: s.interval.String(),
		Services: make(map[string]models.SchedulerServiceStatus, len(models.ServiceTypes)),
	}
	if last := s.eval.LastTransition(); !last.IsZero() {
		status.LastTransition = &last
		status.LastChangedAgo = humanize.Time(last)
	}

	for _, t := range models.ServiceTypes {
		state, err := s.eval.RunState(ctx, t)
		if err != nil {
			slog.Warn("failed to read scheduler state", "type", t, "error", err)
		}
		windows := s.Windows(t)
		status.Services[t] = models.SchedulerServiceStatus{
			RunState:     string(state),
			Toggle:       s.eval.Toggle(t),
			Windows:      ToClock(windows),
			ShouldBeOpen: ShouldBeOpen(windows, hour),
		}
	}
	return status
}

// onSettings runs on the writer's goroutine, so it only swaps windows
// and nudges the loop.
func (s *Scheduler) onSettings(snap remote.Snapshot) {
	if !snap.Exists() {
		return
	}
	var settings models.SchedulerSettings
	if err := snap.Decode(&settings); err != nil {
		slog.Warn("ignoring unreadable scheduler settings", "error", err)
		return
	}
	parsed, err := parseSettings(settings)
	if err != nil {
		slog.Warn("ignoring invalid scheduler settings", "error", err)
		return
	}
	s.apply(parsed)

	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) apply(parsed map[string][]Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, w := range parsed {
		s.windows[t] = w
	}
}

// parseSettings converts stored settings. A service type with no saved
// windows keeps its defaults.
func parseSettings(settings models.SchedulerSettings) (map[string][]Window, error) {
	out := make(map[string][]Window)
	for t, clock := range map[string][]models.ClockWindow{
		models.ServiceMess:    settings.MessSchedule,
		models.ServiceCanteen: settings.CanteenSchedule,
	} {
		if len(clock) == 0 {
			continue
		}
		w, err := FromClock(clock)
		if err != nil {
			return nil, fmt.Errorf("%s schedule: %w", t, err)
		}
		out[t] = w
	}
	return out, nil
}
