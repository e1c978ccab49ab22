// Package validate checks task form input before it reaches the task store.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"planner/internal/task"
)

var (
	titleRe    = regexp.MustCompile(`^\S(?:.*\S)?$`)
	durationRe = regexp.MustCompile(`^(0|[1-9]\d*)(\.\d{1,2})?$`)
	dateRe     = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	tagRe      = regexp.MustCompile(`^[A-Za-z]+(?:[ -][A-Za-z]+)*$`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

const (
	minTitleLen = 3
	maxTitleLen = 100
	maxTagLen   = 30
)

type Field string

const (
	FieldTitle    Field = "title"
	FieldDueDate  Field = "dueDate"
	FieldDuration Field = "duration"
	FieldTag      Field = "tag"
)

// Result collects per-field errors. TitleWarning never makes a result invalid.
type Result struct {
	Errors       map[Field]string
	TitleWarning string
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r Result) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, f := range []Field{FieldTitle, FieldDueDate, FieldDuration, FieldTag} {
		if msg, ok := r.Errors[f]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", f, msg))
		}
	}
	return strings.Join(parts, "; ")
}

// Title returns an error message, or a warning for a repeated adjacent word.
func Title(title string) (errMsg, warning string) {
	if strings.TrimSpace(title) == "" {
		return "Title is required", ""
	}
	if !titleRe.MatchString(title) || strings.Contains(title, "  ") {
		return "Title cannot have leading/trailing spaces or double spaces", ""
	}
	n := len([]rune(title))
	if n < minTitleLen {
		return fmt.Sprintf("Title must be at least %d characters", minTitleLen), ""
	}
	if n > maxTitleLen {
		return fmt.Sprintf("Title is too long (max %d characters)", maxTitleLen), ""
	}
	if w, ok := DuplicateWord(title); ok {
		return "", fmt.Sprintf("Possible duplicate word: %q", w)
	}
	return "", ""
}

func Duration(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Duration is required"
	}
	if !durationRe.MatchString(v) {
		return "Duration must be a positive number"
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n == 0 {
		return "Duration must be greater than 0"
	}
	if n > task.MaxDuration {
		return fmt.Sprintf("Duration cannot exceed %d minutes (24 hours)", task.MaxDuration)
	}
	return ""
}

func Date(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Date is required"
	}
	if !dateRe.MatchString(v) {
		return "Date must be in YYYY-MM-DD format"
	}
	if _, err := time.Parse(task.DateLayout, v); err != nil {
		return "Invalid date"
	}
	return ""
}

func Tag(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Tag is required"
	}
	if !tagRe.MatchString(v) {
		return "Tag can only contain letters, spaces, and hyphens"
	}
	if len(v) > maxTagLen {
		return fmt.Sprintf("Tag is too long (max %d characters)", maxTagLen)
	}
	return ""
}

func Task(d task.Draft) Result {
	r := Result{Errors: map[Field]string{}}
	msg, warn := Title(d.Title)
	if msg != "" {
		r.Errors[FieldTitle] = msg
	}
	r.TitleWarning = warn
	if msg := Date(d.DueDate); msg != "" {
		r.Errors[FieldDueDate] = msg
	}
	if msg := Duration(d.Duration); msg != "" {
		r.Errors[FieldDuration] = msg
	}
	if msg := Tag(d.Tag); msg != "" {
		r.Errors[FieldTag] = msg
	}
	return r
}

// DuplicateWord reports the first word that appears twice in a row, ignoring case.
func DuplicateWord(s string) (string, bool) {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for i := 1; i < len(words); i++ {
		if strings.EqualFold(words[i-1], words[i]) {
			return words[i-1], true
		}
	}
	return "", false
}

// Sanitize trims s and collapses inner whitespace runs to one space.
func Sanitize(s string) string {
	return spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// SanitizeDraft applies Sanitize to every field.
func SanitizeDraft(d task.Draft) task.Draft {
	return task.Draft{
		Title:    Sanitize(d.Title),
		DueDate:  Sanitize(d.DueDate),
		Duration: Sanitize(d.Duration),
		Tag:      Sanitize(d.Tag),
	}
}

// FormatDuration renders minutes as "45m", "2h" or "1h 30m".
func FormatDuration(minutes float64) string {
	if math.IsNaN(minutes) || minutes <= 0 {
		return ""
	}
	hours := int(minutes / 60)
	mins := int(math.Round(math.Mod(minutes, 60)))
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
}
