// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/schedule"
)

// SuggestionsPath holds the admin-managed food name list.
const SuggestionsPath = "food_suggestions"

// File is a bootstrap document for a fresh deployment.
type File struct {
	Owners      []Owner             `yaml:"owners"`
	Schedule    map[string][]Window `yaml:"schedule"`
	Suggestions []string            `yaml:"suggestions"`
}

type Owner struct {
	UID   string `yaml:"uid"`
	Type  string `yaml:"type"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
	Open  bool   `yaml:"open"`
	// Menu maps day key to meal key to the meal.
	Menu map[string]map[string]Meal `yaml:"menu"`
}

type Meal struct {
	Price string `yaml:"price"`
	Items []Item `yaml:"items"`
}

type Item struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// Window accepts "HH:mm-HH:mm" or {start: "HH:mm", end: "HH:mm"}.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// UnmarshalYAML implements custom unmarshaling to support both string and struct forms.
func (w *Window) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		start, end, ok := strings.Cut(value.Value, "-")
		if !ok {
			return fmt.Errorf("line %d: window %q is not HH:mm-HH:mm", value.Line, value.Value)
		}
		w.Start, w.End = strings.TrimSpace(start), strings.TrimSpace(end)
		return nil
	}

	type rawWindow Window
	var raw rawWindow
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*w = Window(raw)
	return nil
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks owner types, menu keys and windows.
func (f *File) Validate() error {
	for i, o := range f.Owners {
		if !models.IsServiceType(o.Type) {
			return fmt.Errorf("owner %d: unknown type %q (supported: mess, canteen)", i, o.Type)
		}
		if o.Name == "" {
			return fmt.Errorf("owner %d: name is required", i)
		}
		if o.UID == "" && o.Email == "" {
			return fmt.Errorf("owner %q: uid or email is required", o.Name)
		}
		for day, meals := range o.Menu {
			if !models.IsDayKey(day) {
				return fmt.Errorf("owner %q: unknown day %q", o.Name, day)
			}
			for meal := range meals {
				if !models.IsMealKey(meal) {
					return fmt.Errorf("owner %q: unknown meal %q on %s", o.Name, meal, day)
				}
			}
		}
	}
	for t := range f.Schedule {
		if !models.IsServiceType(t) {
			return fmt.Errorf("schedule: unknown type %q", t)
		}
		if _, err := schedule.FromClock(f.clock(t)); err != nil {
			return fmt.Errorf("schedule %s: %w", t, err)
		}
	}
	return nil
}

func (f *File) clock(serviceType string) []models.ClockWindow {
	var out []models.ClockWindow
	for _, w := range f.Schedule[serviceType] {
		out = append(out, models.ClockWindow{Start: w.Start, End: w.End})
	}
	return out
}

// OwnerUID is the owner's uid, derived from type and email when the seed
// leaves it out so reseeding finds the same owner.
func (o Owner) OwnerUID() string {
	if o.UID != "" {
		return o.UID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("campus-mess:"+o.Type+":"+strings.ToLower(o.Email))).String()
}

// Document converts the seed entry into the stored owner record.
func (o Owner) Document() models.Owner {
	doc := models.Owner{
		Profile: models.Profile{
			MessName:   o.Name,
			Email:      o.Email,
			Phone:      o.Phone,
			UserType:   o.Type,
			MessStatus: o.Open,
		},
	}
	if len(o.Menu) == 0 {
		return doc
	}
	doc.Weekdays = make(models.WeeklyMenu, len(o.Menu))
	for day, meals := range o.Menu {
		d := models.Day{Meals: make(map[string]models.Meal, len(meals))}
		for key, m := range meals {
			meal := models.Meal{Price: m.Price, Items: make(map[string]models.MenuItem, len(m.Items))}
			for i, it := range m.Items {
				meal.Items[fmt.Sprintf("seed%02d", i+1)] = models.MenuItem{Name: it.Name, Price: it.Price}
			}
			d.Meals[key] = meal
		}
		doc.Weekdays[day] = d
	}
	return doc
}

// Apply writes everything the store does not already have in one
// combined update. Existing owners, settings and suggestions are left
// alone, so applying the same file twice is harmless.
func Apply(ctx context.Context, store remote.Store, f *File) (int, error) {
	updates := make(map[string]any)

	for _, o := range f.Owners {
		p := remote.Join(schedule.OwnersPath(o.Type), o.OwnerUID())
		existing, err := store.Read(ctx, p)
		if err != nil {
			return 0, err
		}
		if existing.Exists() {
			continue
		}
		updates[p] = o.Document()
	}

	if len(f.Schedule) > 0 {
		existing, err := store.Read(ctx, schedule.SettingsPath)
		if err != nil {
			return 0, err
		}
		if !existing.Exists() {
			updates[schedule.SettingsPath] = models.SchedulerSettings{
				MessSchedule:    f.clock(models.ServiceMess),
				CanteenSchedule: f.clock(models.ServiceCanteen),
			}
		}
	}

	if len(f.Suggestions) > 0 {
		existing, err := store.Read(ctx, SuggestionsPath)
		if err != nil {
			return 0, err
		}
		if !existing.Exists() {
			for _, name := range f.Suggestions {
				id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("campus-mess:suggestion:"+name)).String()[:8]
				updates[remote.Join(SuggestionsPath, id)] = name
			}
		}
	}

	if len(updates) == 0 {
		return 0, nil
	}
	if err := store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to apply seed: %w", err)
	}
	slog.Info("seed applied", "paths", len(updates))
	return len(updates), nil
}
