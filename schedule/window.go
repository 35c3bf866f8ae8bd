// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package schedule

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/campus-mess/models"
)

var ErrInvalidWindow = errors.New("invalid operating window")

// Window is a half-open operating interval [Start, End) in decimal hours.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (w Window) Contains(hour float64) bool {
	return w.Start <= hour && hour < w.End
}

// Default windows used until an admin saves settings.
var (
	MessDefaults    = []Window{{Start: 11, End: 15}, {Start: 19, End: 23}}
	CanteenDefaults = []Window{{Start: 7, End: 10}, {Start: 15.5, End: 19}}
)

// Defaults returns a copy of the default windows for a service type.
func Defaults(serviceType string) []Window {
	switch serviceType {
	case models.ServiceMess:
		return append([]Window(nil), MessDefaults...)
	case models.ServiceCanteen:
		return append([]Window(nil), CanteenDefaults...)
	}
	return nil
}

// ShouldBeOpen reports whether hour falls inside any window. No windows
// means closed.
func ShouldBeOpen(windows []Window, hour float64) bool {
	for _, w := range windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

// DecimalHour converts a wall-clock time to hour + minute/60. Seconds
// are ignored.
func DecimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// ParseClock parses "HH:mm" into decimal hours. "24:00" is accepted as
// an end of day.
func ParseClock(s string) (float64, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not HH:mm", ErrInvalidWindow, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidWindow, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidWindow, s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidWindow, s)
	}
	return float64(h) + float64(m)/60, nil
}

// FormatClock renders decimal hours as "HH:mm".
func FormatClock(hour float64) string {
	h := math.Floor(hour)
	m := math.Round((hour - h) * 60)
	if m == 60 {
		h++
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", int(h), int(m))
}

// Validate rejects windows outside the day, empty or inverted windows
// (start >= end, which would mean crossing midnight) and overlapping
// windows. Adjacent windows are fine.
func Validate(windows []Window) error {
	sorted := append([]Window(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, w := range sorted {
		if w.Start < 0 || w.Start >= 24 || w.End <= 0 || w.End > 24 {
			return fmt.Errorf("%w: %s-%s is outside the day", ErrInvalidWindow, FormatClock(w.Start), FormatClock(w.End))
		}
		if w.Start >= w.End {
			return fmt.Errorf("%w: %s-%s ends before it starts", ErrInvalidWindow, FormatClock(w.Start), FormatClock(w.End))
		}
		if i > 0 && sorted[i-1].End > w.Start {
			return fmt.Errorf("%w: %s-%s overlaps %s-%s", ErrInvalidWindow,
				FormatClock(sorted[i-1].Start), FormatClock(sorted[i-1].End), FormatClock(w.Start), FormatClock(w.End))
		}
	}
	return nil
}

// FromClock converts admin-entered windows and validates them.
func FromClock(in []models.ClockWindow) ([]Window, error) {
	out := make([]Window, 0, len(in))
	for _, cw := range in {
		start, err := ParseClock(cw.Start)
		if err != nil {
			return nil, err
		}
		end, err := ParseClock(cw.End)
		if err != nil {
			return nil, err
		}
		out = append(out, Window{Start: start, End: end})
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func ToClock(windows []Window) []models.ClockWindow {
	out := make([]models.ClockWindow, len(windows))
	for i, w := range windows {
		out[i] = models.ClockWindow{Start: FormatClock(w.Start), End: FormatClock(w.End)}
	}
	return out
}
