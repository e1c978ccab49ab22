package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"planner/internal/storage"
	"planner/internal/task"
)

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, storage.DefaultSettings(), time.Now())
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, NoTag, s.TopTag)
	assert.Equal(t, 40, s.Cap.CapHours)
	assert.Equal(t, LevelOK, s.Cap.Level)
	assert.Equal(t, "You have 40 hours remaining this week", s.Cap.Status())
}

func TestCompute(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)
	tasks := []task.Task{
		{DueDate: "2024-06-09", Duration: 120, Tag: "Study"},
		{DueDate: "2024-06-03", Duration: 60, Tag: "Sports"},
		{DueDate: "2024-06-04", Duration: 30, Tag: "Study"},
		{DueDate: "2024-06-11", Duration: 600, Tag: "Sports"},
		{DueDate: "2024-06-02", Duration: 15, Tag: "Errands"},
		{DueDate: "bad", Duration: 5, Tag: "Errands"},
	}
	s := Compute(tasks, storage.Settings{WeeklyCap: 4, DurationUnit: storage.UnitMinutes}, now)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 830.0, s.TotalMinutes)
	assert.Equal(t, "Study", s.TopTag)
	assert.Equal(t, 150.0, s.WeekMinutes)
	assert.Equal(t, 3, s.Cap.WeekHours)
	assert.InDelta(t, 62.5, s.Cap.Percent, 0.001)
	assert.Equal(t, 1, s.Cap.Remaining)
	assert.Equal(t, LevelOK, s.Cap.Level)
}

func TestTopTagTieGoesToFirstSeen(t *testing.T) {
	tasks := []task.Task{{Tag: "A"}, {Tag: "B"}, {Tag: "B"}, {Tag: "A"}}
	s := Compute(tasks, storage.DefaultSettings(), time.Now())
	assert.Equal(t, "A", s.TopTag)

	tasks = append(tasks, task.Task{Tag: "B"})
	s = Compute(tasks, storage.DefaultSettings(), time.Now())
	assert.Equal(t, "B", s.TopTag)
}

func TestCapLevels(t *testing.T) {
	tests := []struct {
		minutes  float64
		capHours int
		level    Level
		percent  float64
		status   string
	}{
		{540, 10, LevelWarning, 90, "You have 1 hours remaining this week"},
		{600, 10, LevelDanger, 100, "You have reached your weekly cap"},
		{900, 10, LevelDanger, 100, "You are 5 hours over your weekly cap!"},
		{60, 0, LevelOK, 2.5, "You have 39 hours remaining this week"},
	}
	for _, tt := range tests {
		c := capProgress(tt.minutes, tt.capHours)
		assert.Equal(t, tt.level, c.Level)
		assert.InDelta(t, tt.percent, c.Percent, 0.001)
		assert.Equal(t, tt.status, c.Status())
	}
}

func TestDisplayDuration(t *testing.T) {
	assert.Equal(t, "1h 30m", DisplayDuration(90, storage.UnitMinutes))
	assert.Equal(t, "1.5h", DisplayDuration(90, storage.UnitHours))
	assert.Equal(t, "0.33h", DisplayDuration(20, storage.UnitHours))
}
