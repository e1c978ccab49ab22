package task

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const DefaultSort = "date-desc"

// Store owns the task collection and the session's filter/sort state.
// It is not safe for concurrent use.
type Store struct {
	tasks           []Task
	ids             map[string]struct{}
	filter          string
	sort            string
	caseInsensitive bool
	gen             *idGenerator
	now             func() time.Time
	log             *slog.Logger
}

type Option func(*Store)

func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		ids:             map[string]struct{}{},
		sort:            DefaultSort,
		caseInsensitive: true,
		gen:             newIDGenerator(),
		now:             time.Now,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Add(d Draft) (Task, error) {
	duration, err := ParseDuration(d.Duration)
	if err != nil {
		return Task{}, err
	}
	now := s.now().UTC()
	id := s.gen.next(now)
	for {
		if _, taken := s.ids[id]; !taken {
			break
		}
		id = s.gen.next(now)
	}
	t := Task{
		ID:        id,
		Title:     d.Title,
		DueDate:   d.DueDate,
		Duration:  duration,
		Tag:       d.Tag,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks = append(s.tasks, t)
	s.ids[id] = struct{}{}
	s.log.Debug("task added", "id", t.ID, "title", t.Title)
	return t, nil
}

func (s *Store) Update(id string, d Draft) (Task, error) {
	i := s.index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	duration, err := ParseDuration(d.Duration)
	if err != nil {
		return Task{}, err
	}
	t := s.tasks[i]
	t.Title = d.Title
	t.DueDate = d.DueDate
	t.Duration = duration
	t.Tag = d.Tag
	t.UpdatedAt = s.now().UTC()
	s.tasks[i] = t
	s.log.Debug("task updated", "id", t.ID)
	return t, nil
}

func (s *Store) Delete(id string) (Task, error) {
	i := s.index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	t := s.tasks[i]
	s.tasks = slices.Delete(s.tasks, i, i+1)
	// ids stays reserved so a deleted id is never handed out again.
	s.log.Debug("task deleted", "id", t.ID)
	return t, nil
}

func (s *Store) Get(id string) (Task, error) {
	i := s.index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return s.tasks[i], nil
}

// All returns a copy of the collection in storage order.
func (s *Store) All() []Task {
	return slices.Clone(s.tasks)
}

func (s *Store) Len() int {
	return len(s.tasks)
}

// ReplaceAll swaps in a loaded or imported batch. Records without an id or
// timestamps get them; later duplicates of an id are dropped.
func (s *Store) ReplaceAll(tasks []Task) {
	now := s.now().UTC()
	s.tasks = make([]Task, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = s.gen.next(now)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		if _, dup := seen[t.ID]; dup {
			s.log.Warn("dropping task with duplicate id", "id", t.ID)
			continue
		}
		seen[t.ID] = struct{}{}
		s.ids[t.ID] = struct{}{}
		s.tasks = append(s.tasks, t)
	}
	s.log.Debug("tasks loaded", "count", len(s.tasks))
}

func (s *Store) Clear() {
	s.tasks = nil
	s.log.Debug("all tasks cleared")
}

func (s *Store) Filter() string {
	return s.filter
}

func (s *Store) SetFilter(text string) {
	s.filter = text
}

func (s *Store) Sort() string {
	return s.sort
}

func (s *Store) SetSort(key string) {
	s.sort = key
}

func (s *Store) CaseInsensitive() bool {
	return s.caseInsensitive
}

func (s *Store) SetCaseInsensitive(v bool) {
	s.caseInsensitive = v
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
}
