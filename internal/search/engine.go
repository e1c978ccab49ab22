package search

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"planner/internal/task"
)

const matcherCacheSize = 128

// Marker wraps one matched span for presentation.
type Marker func(match string) string

func MarkTag(match string) string {
	return "<mark>" + match + "</mark>"
}

// MarkFormat builds a Marker from a printf-style format with a single %s.
func MarkFormat(format string) Marker {
	if !strings.Contains(format, "%s") {
		return MarkTag
	}
	return func(match string) string { return fmt.Sprintf(format, match) }
}

type cacheKey struct {
	pattern         string
	caseInsensitive bool
}

type compiled struct {
	m   *Matcher
	err error
}

// Engine runs the filter/sort/highlight pipeline over task snapshots. It
// caches compiled patterns, so one Engine must not be shared across goroutines.
type Engine struct {
	cache    *lru.Cache[cacheKey, compiled]
	collator *collate.Collator
	now      func() time.Time
	mark     Marker
	log      *slog.Logger
}

type Option func(*Engine)

func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLocale(tag language.Tag) Option {
	return func(e *Engine) { e.collator = collate.New(tag, collate.IgnoreCase) }
}

func WithMarker(m Marker) Option {
	return func(e *Engine) { e.mark = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(opts ...Option) *Engine {
	cache, err := lru.New[cacheKey, compiled](matcherCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	e := &Engine{
		cache:    cache,
		collator: collate.New(language.English, collate.IgnoreCase),
		now:      time.Now,
		mark:     MarkTag,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile is Compile with a cache in front. Invalid patterns are cached too.
func (e *Engine) Compile(pattern string, caseInsensitive bool) (*Matcher, error) {
	key := cacheKey{pattern: pattern, caseInsensitive: caseInsensitive}
	if c, ok := e.cache.Get(key); ok {
		return c.m, c.err
	}
	m, err := Compile(pattern, caseInsensitive)
	if err != nil {
		e.log.Debug("search pattern rejected", "pattern", pattern, "err", err)
	}
	e.cache.Add(key, compiled{m: m, err: err})
	return m, err
}

// Filter returns the order-preserving subsequence of tasks selected by
// rawQuery. A blank query and an invalid pattern both select everything.
func (e *Engine) Filter(tasks []task.Task, rawQuery string, caseInsensitive bool) []task.Task {
	if isBlank(rawQuery) {
		return tasks
	}

	q := Parse(rawQuery)
	switch q.Kind {
	case KindTag:
		return keep(tasks, func(t task.Task) bool {
			return strings.EqualFold(t.Tag, q.Value)
		})
	case KindOverdue:
		today := midnight(e.now())
		return keep(tasks, func(t task.Task) bool {
			due, ok := t.Due()
			return ok && due.Before(today)
		})
	}

	m, err := e.Compile(q.Value, caseInsensitive)
	if err != nil {
		return tasks
	}
	return keep(tasks, func(t task.Task) bool {
		return m.Test(t.Title) || m.Test(t.Tag) || m.Test(t.DueDate)
	})
}

// Highlight wraps every non-empty match of a pattern query in text with the
// engine's marker. Directive queries and invalid patterns leave text as is.
func (e *Engine) Highlight(text, rawQuery string, caseInsensitive bool) string {
	if text == "" || isBlank(rawQuery) {
		return text
	}
	q := Parse(rawQuery)
	if q.Kind != KindPattern {
		return text
	}
	m, err := e.Compile(q.Value, caseInsensitive)
	if err != nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, sp := range m.FindAll(text) {
		if sp.Start == sp.End {
			continue
		}
		b.WriteString(text[last:sp.Start])
		b.WriteString(e.mark(text[sp.Start:sp.End]))
		last = sp.End
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// Apply is the full view pipeline: filter, then sort.
func (e *Engine) Apply(tasks []task.Task, rawQuery string, key SortKey, caseInsensitive bool) []task.Task {
	return e.Sort(e.Filter(tasks, rawQuery, caseInsensitive), key)
}

func keep(tasks []task.Task, pred func(task.Task) bool) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
