// Package planner wires the task store, the search engine and persistence
// into the operations the UI and CLI drive.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"planner/internal/search"
	"planner/internal/stats"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/transfer"
	"planner/internal/validate"
)

type Persistence interface {
	LoadTasks(ctx context.Context) ([]task.Task, error)
	SaveTasks(ctx context.Context, tasks []task.Task) error
	LoadSettings(ctx context.Context) (storage.Settings, error)
	SaveSettings(ctx context.Context, s storage.Settings) error
	Clear(ctx context.Context) error
}

// ValidationError carries the per-field messages of a rejected draft.
type ValidationError struct {
	Result validate.Result
}

func (e *ValidationError) Error() string {
	return "invalid task: " + e.Result.Error()
}

type Planner struct {
	Tasks    *task.Store
	Engine   *search.Engine
	persist  Persistence
	settings storage.Settings
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Planner)

func WithNow(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.log = l }
}

func New(tasks *task.Store, engine *search.Engine, persist Persistence, opts ...Option) *Planner {
	p := &Planner{
		Tasks:    tasks,
		Engine:   engine,
		persist:  persist,
		settings: storage.DefaultSettings(),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads tasks and settings. On a storage failure the planner keeps
// running on defaults and an empty collection.
func (p *Planner) Load(ctx context.Context) error {
	var errs []error
	tasks, err := p.persist.LoadTasks(ctx)
	if err != nil {
		p.log.Error("could not load tasks", "err", err)
		errs = append(errs, err)
	} else {
		p.Tasks.ReplaceAll(tasks)
	}
	settings, err := p.persist.LoadSettings(ctx)
	if err != nil {
		p.log.Error("could not load settings", "err", err)
		errs = append(errs, err)
	}
	p.settings = settings
	return errors.Join(errs...)
}

func (p *Planner) Settings() storage.Settings {
	return p.settings
}

// SaveSettings persists s and makes it the value every later read sees.
func (p *Planner) SaveSettings(ctx context.Context, s storage.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	p.settings = s
	if err := p.persist.SaveSettings(ctx, s); err != nil {
		p.log.Error("could not save settings", "err", err)
		return err
	}
	return nil
}

// Add validates, stores and saves a new task. A save failure still leaves
// the task in memory and is returned alongside it.
func (p *Planner) Add(ctx context.Context, d task.Draft) (task.Task, string, error) {
	d = validate.SanitizeDraft(d)
	r := validate.Task(d)
	if !r.Valid() {
		return task.Task{}, "", &ValidationError{Result: r}
	}
	t, err := p.Tasks.Add(d)
	if err != nil {
		return task.Task{}, "", err
	}
	return t, r.TitleWarning, p.save(ctx)
}

func (p *Planner) Update(ctx context.Context, id string, d task.Draft) (task.Task, string, error) {
	d = validate.SanitizeDraft(d)
	r := validate.Task(d)
	if !r.Valid() {
		return task.Task{}, "", &ValidationError{Result: r}
	}
	t, err := p.Tasks.Update(id, d)
	if err != nil {
		return task.Task{}, "", err
	}
	return t, r.TitleWarning, p.save(ctx)
}

func (p *Planner) Delete(ctx context.Context, id string) (task.Task, error) {
	t, err := p.Tasks.Delete(id)
	if err != nil {
		return task.Task{}, err
	}
	return t, p.save(ctx)
}

// Clear drops every task, in memory and on disk. Settings survive.
func (p *Planner) Clear(ctx context.Context) error {
	p.Tasks.Clear()
	return p.save(ctx)
}

// Reset wipes tasks and settings everywhere.
func (p *Planner) Reset(ctx context.Context) error {
	p.Tasks.Clear()
	p.settings = storage.DefaultSettings()
	if err := p.persist.Clear(ctx); err != nil {
		p.log.Error("could not clear storage", "err", err)
		return err
	}
	return nil
}

// View runs the store's current filter and sort over the collection.
func (p *Planner) View() []task.Task {
	return p.Engine.Apply(p.Tasks.All(), p.Tasks.Filter(), search.ParseSortKey(p.Tasks.Sort()), p.Tasks.CaseInsensitive())
}

func (p *Planner) Highlight(text string) string {
	return p.Engine.Highlight(text, p.Tasks.Filter(), p.Tasks.CaseInsensitive())
}

func (p *Planner) Stats() stats.Summary {
	return stats.Compute(p.Tasks.All(), p.settings, p.now())
}

func (p *Planner) Export(w io.Writer, f transfer.Format) error {
	return transfer.Export(w, p.Tasks.All(), f)
}

// Import replaces the collection with the batch in r. A rejected batch
// leaves the collection untouched.
func (p *Planner) Import(ctx context.Context, r io.Reader, f transfer.Format) (int, error) {
	tasks, err := transfer.Import(r, f)
	if err != nil {
		return 0, err
	}
	p.Tasks.ReplaceAll(tasks)
	p.log.Info("tasks imported", "count", len(tasks))
	return p.Tasks.Len(), p.save(ctx)
}

func (p *Planner) save(ctx context.Context) error {
	if err := p.persist.SaveTasks(ctx, p.Tasks.All()); err != nil {
		p.log.Error("could not save tasks", "err", err)
		return fmt.Errorf("changes kept in memory only: %w", err)
	}
	return nil
}
