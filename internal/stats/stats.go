// Package stats computes the dashboard summary and weekly cap progress.
package stats

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/validate"
)

const (
	NoTag       = "—"
	warningFrom = 90.0
	dangerFrom  = 100.0
	week        = 7 * 24 * time.Hour
)

type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelDanger
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelDanger:
		return "danger"
	default:
		return "ok"
	}
}

type Summary struct {
	Total        int
	TotalMinutes float64
	TopTag       string
	WeekMinutes  float64
	Cap          Cap
}

// Cap is weekly scheduled time measured against the configured cap.
type Cap struct {
	CapHours  int
	WeekHours int
	Percent   float64
	Remaining int
	Level     Level
}

func (c Cap) Status() string {
	switch {
	case c.Remaining > 0:
		return fmt.Sprintf("You have %d hours remaining this week", c.Remaining)
	case c.Remaining == 0:
		return "You have reached your weekly cap"
	default:
		return fmt.Sprintf("You are %d hours over your weekly cap!", -c.Remaining)
	}
}

// Compute summarises tasks. The week window is [now-7d, now].
func Compute(tasks []task.Task, settings storage.Settings, now time.Time) Summary {
	s := Summary{Total: len(tasks), TopTag: NoTag}

	counts := map[string]int{}
	var order []string
	weekAgo := now.Add(-week)
	for _, t := range tasks {
		s.TotalMinutes += t.Duration

		if _, ok := counts[t.Tag]; !ok {
			order = append(order, t.Tag)
		}
		counts[t.Tag]++

		due, ok := t.Due()
		if ok && !due.Before(weekAgo) && !due.After(now) {
			s.WeekMinutes += t.Duration
		}
	}

	// Ties go to the tag seen first.
	best := 0
	for _, tag := range order {
		if counts[tag] > best {
			best = counts[tag]
			s.TopTag = tag
		}
	}

	s.Cap = capProgress(s.WeekMinutes, settings.WeeklyCap)
	return s
}

func capProgress(weekMinutes float64, capHours int) Cap {
	if capHours <= 0 {
		capHours = storage.DefaultWeeklyCap
	}
	c := Cap{
		CapHours:  capHours,
		WeekHours: int(math.Round(weekMinutes / 60)),
		Percent:   math.Min(weekMinutes/float64(capHours*60)*100, 100),
	}
	c.Remaining = c.CapHours - c.WeekHours
	switch {
	case c.Percent >= dangerFrom:
		c.Level = LevelDanger
	case c.Percent >= warningFrom:
		c.Level = LevelWarning
	}
	return c
}

// DisplayDuration renders minutes in the user's preferred unit.
func DisplayDuration(minutes float64, unit storage.DurationUnit) string {
	if unit == storage.UnitHours {
		return strconv.FormatFloat(math.Round(minutes/60*100)/100, 'f', -1, 64) + "h"
	}
	return validate.FormatDuration(minutes)
}
