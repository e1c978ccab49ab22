package planner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/search"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/transfer"
	"planner/internal/validate"
)

type memPersistence struct {
	tasks    []task.Task
	settings *storage.Settings
	fail     bool
}

var errDisk = errors.New("disk full")

func (m *memPersistence) LoadTasks(context.Context) ([]task.Task, error) {
	if m.fail {
		return nil, errDisk
	}
	return append([]task.Task(nil), m.tasks...), nil
}

func (m *memPersistence) SaveTasks(_ context.Context, tasks []task.Task) error {
	if m.fail {
		return errDisk
	}
	m.tasks = append([]task.Task(nil), tasks...)
	return nil
}

func (m *memPersistence) LoadSettings(context.Context) (storage.Settings, error) {
	if m.fail {
		return storage.DefaultSettings(), errDisk
	}
	if m.settings == nil {
		return storage.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *memPersistence) SaveSettings(_ context.Context, s storage.Settings) error {
	if m.fail {
		return errDisk
	}
	m.settings = &s
	return nil
}

func (m *memPersistence) Clear(context.Context) error {
	if m.fail {
		return errDisk
	}
	m.tasks = nil
	m.settings = nil
	return nil
}

var today = time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)

func newPlanner(p *memPersistence) *Planner {
	clock := func() time.Time { return today }
	return New(task.NewStore(task.WithNow(clock)), search.NewEngine(search.WithNow(clock)), p, WithNow(clock))
}

func validDraft(title string) task.Draft {
	return task.Draft{Title: title, DueDate: "2024-06-09", Duration: "60", Tag: "Study"}
}

func TestAddSavesAndValidates(t *testing.T) {
	ctx := context.Background()
	mem := &memPersistence{}
	p := newPlanner(mem)

	got, warn, err := p.Add(ctx, task.Draft{Title: "  Math   Homework ", DueDate: "2024-06-09", Duration: "90", Tag: "Study"})
	require.NoError(t, err)
	assert.Empty(t, warn)
	assert.Equal(t, "Math Homework", got.Title)
	assert.Equal(t, []task.Task{got}, mem.tasks)

	_, _, err = p.Add(ctx, task.Draft{Title: "ok title", DueDate: "2024-06-09", Duration: "1441", Tag: "Study"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Result.Errors, validate.FieldDuration)
	assert.Equal(t, 1, p.Tasks.Len())

	_, warn, err = p.Add(ctx, validDraft("the the thing"))
	require.NoError(t, err)
	assert.NotEmpty(t, warn)
}

func TestSaveFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	mem := &memPersistence{}
	p := newPlanner(mem)
	mem.fail = true

	got, _, err := p.Add(ctx, validDraft("Essay draft"))
	assert.ErrorIs(t, err, errDisk)
	stored, getErr := p.Tasks.Get(got.ID)
	require.NoError(t, getErr)
	assert.Equal(t, got, stored)
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	p := newPlanner(&memPersistence{})

	_, _, err := p.Update(ctx, "nope", validDraft("Essay draft"))
	assert.ErrorIs(t, err, task.ErrNotFound)
	_, err = p.Delete(ctx, "nope")
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	saved := storage.Settings{WeeklyCap: 10, DurationUnit: storage.UnitHours}
	mem := &memPersistence{
		tasks:    []task.Task{{ID: "task_1", Title: "Run", DueDate: "2024-06-08", Duration: 300, Tag: "Sports"}},
		settings: &saved,
	}
	p := newPlanner(mem)
	require.NoError(t, p.Load(ctx))
	assert.Equal(t, 1, p.Tasks.Len())
	assert.Equal(t, saved, p.Settings())
	assert.Equal(t, 5, p.Stats().Cap.WeekHours)
	assert.Equal(t, 10, p.Stats().Cap.CapHours)

	failing := newPlanner(&memPersistence{fail: true})
	assert.ErrorIs(t, failing.Load(ctx), errDisk)
	assert.Equal(t, storage.DefaultSettings(), failing.Settings())
}

func TestSettingsSingleSource(t *testing.T) {
	ctx := context.Background()
	mem := &memPersistence{}
	p := newPlanner(mem)

	require.NoError(t, p.SaveSettings(ctx, storage.Settings{WeeklyCap: 12, DurationUnit: storage.UnitMinutes}))
	assert.Equal(t, 12, p.Stats().Cap.CapHours)
	assert.Equal(t, 12, mem.settings.WeeklyCap)

	assert.ErrorIs(t, p.SaveSettings(ctx, storage.Settings{WeeklyCap: 0, DurationUnit: storage.UnitMinutes}), storage.ErrInvalidSettings)
	assert.Equal(t, 12, p.Settings().WeeklyCap)
}

func TestView(t *testing.T) {
	ctx := context.Background()
	p := newPlanner(&memPersistence{})
	for _, d := range []task.Draft{
		{Title: "Math Homework", DueDate: "2024-06-09", Duration: "90", Tag: "Study"},
		{Title: "Football", DueDate: "2024-06-11", Duration: "60", Tag: "Sports"},
		{Title: "Reading", DueDate: "2024-06-12", Duration: "30", Tag: "Study"},
	} {
		_, _, err := p.Add(ctx, d)
		require.NoError(t, err)
	}

	titles := func() []string {
		var out []string
		for _, tk := range p.View() {
			out = append(out, tk.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Reading", "Football", "Math Homework"}, titles())

	p.Tasks.SetFilter("@tag:study")
	p.Tasks.SetSort("duration-desc")
	assert.Equal(t, []string{"Math Homework", "Reading"}, titles())

	p.Tasks.SetFilter("!overdue")
	assert.Equal(t, []string{"Math Homework"}, titles())

	p.Tasks.SetFilter("math")
	assert.Equal(t, "<mark>Math</mark> Homework", p.Highlight("Math Homework"))
	p.Tasks.SetCaseInsensitive(false)
	assert.Empty(t, titles())
	assert.Equal(t, "Math Homework", p.Highlight("Math Homework"))
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	mem := &memPersistence{}
	p := newPlanner(mem)
	_, _, err := p.Add(ctx, validDraft("Essay draft"))
	require.NoError(t, err)
	before := p.Tasks.All()

	var buf bytes.Buffer
	require.NoError(t, p.Export(&buf, transfer.FormatJSON))

	other := newPlanner(&memPersistence{})
	n, err := other.Import(ctx, &buf, transfer.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before, other.Tasks.All())

	_, err = p.Import(ctx, strings.NewReader(`{"not":"a list"}`), transfer.FormatJSON)
	assert.ErrorIs(t, err, transfer.ErrInvalidImportData)
	assert.Equal(t, before, p.Tasks.All())
}

func TestClearAndReset(t *testing.T) {
	ctx := context.Background()
	mem := &memPersistence{}
	p := newPlanner(mem)
	_, _, err := p.Add(ctx, validDraft("Essay draft"))
	require.NoError(t, err)
	require.NoError(t, p.SaveSettings(ctx, storage.Settings{WeeklyCap: 5, DurationUnit: storage.UnitHours}))

	require.NoError(t, p.Clear(ctx))
	assert.Zero(t, p.Tasks.Len())
	assert.Empty(t, mem.tasks)
	assert.Equal(t, 5, p.Settings().WeeklyCap)

	require.NoError(t, p.Reset(ctx))
	assert.Equal(t, storage.DefaultSettings(), p.Settings())
	assert.Nil(t, mem.settings)
}
