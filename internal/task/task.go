package task

import (
	"crypto/rand"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	DateLayout  = "2006-01-02"
	MaxDuration = 1440
	idPrefix    = "task_"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrInvalidDuration = errors.New("duration must be a number greater than 0 and at most 1440")
)

type Task struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	DueDate   string    `json:"dueDate" yaml:"dueDate"`
	Duration  float64   `json:"duration" yaml:"duration"`
	Tag       string    `json:"tag" yaml:"tag"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Due parses DueDate as a local calendar date. ok is false for malformed dates.
func (t Task) Due() (time.Time, bool) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(t.DueDate), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Draft is the caller-supplied part of a task, as it comes out of a form.
type Draft struct {
	Title    string
	DueDate  string
	Duration string
	Tag      string
}

func DraftOf(t Task) Draft {
	return Draft{
		Title:    t.Title,
		DueDate:  t.DueDate,
		Duration: strconv.FormatFloat(t.Duration, 'f', -1, 64),
		Tag:      t.Tag,
	}
}

func ParseDuration(v string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, ErrInvalidDuration
	}
	// NaN fails both comparisons.
	if !(d > 0 && d <= MaxDuration) {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

type idGenerator struct {
	entropy *ulid.MonotonicEntropy
}

func newIDGenerator() *idGenerator {
	return &idGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *idGenerator) next(now time.Time) string {
	return idPrefix + ulid.MustNew(ulid.Timestamp(now), g.entropy).String()
}
