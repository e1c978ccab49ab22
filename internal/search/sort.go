package search

import (
	"cmp"
	"slices"
	"strings"

	"planner/internal/task"
)

type SortKey string

const (
	SortDateAsc      SortKey = "date-asc"
	SortDateDesc     SortKey = "date-desc"
	SortTitleAsc     SortKey = "title-asc"
	SortTitleDesc    SortKey = "title-desc"
	SortDurationAsc  SortKey = "duration-asc"
	SortDurationDesc SortKey = "duration-desc"
)

var sortKeys = []SortKey{
	SortDateDesc, SortDateAsc,
	SortTitleAsc, SortTitleDesc,
	SortDurationAsc, SortDurationDesc,
}

// SortKeys lists the recognised keys, default first.
func SortKeys() []SortKey {
	return slices.Clone(sortKeys)
}

// ParseSortKey maps anything but an exact key to the default, date-desc.
func ParseSortKey(s string) SortKey {
	k := SortKey(s)
	if slices.Contains(sortKeys, k) {
		return k
	}
	return SortDateDesc
}

// Next cycles through SortKeys.
func (k SortKey) Next() SortKey {
	i := slices.Index(sortKeys, ParseSortKey(string(k)))
	return sortKeys[(i+1)%len(sortKeys)]
}

func (k SortKey) Label() string {
	switch ParseSortKey(string(k)) {
	case SortDateAsc:
		return "due date ↑"
	case SortTitleAsc:
		return "title A-Z"
	case SortTitleDesc:
		return "title Z-A"
	case SortDurationAsc:
		return "duration ↑"
	case SortDurationDesc:
		return "duration ↓"
	default:
		return "due date ↓"
	}
}

// Sort returns a stably ordered copy of tasks. Tasks whose due date does not
// parse go last under both date orders.
func (e *Engine) Sort(tasks []task.Task, key SortKey) []task.Task {
	sorted := slices.Clone(tasks)

	var compare func(a, b task.Task) int
	switch ParseSortKey(string(key)) {
	case SortDateAsc:
		compare = byDue(false)
	case SortTitleAsc:
		compare = e.byTitle
	case SortTitleDesc:
		compare = func(a, b task.Task) int { return e.byTitle(b, a) }
	case SortDurationAsc:
		compare = func(a, b task.Task) int { return cmp.Compare(a.Duration, b.Duration) }
	case SortDurationDesc:
		compare = func(a, b task.Task) int { return cmp.Compare(b.Duration, a.Duration) }
	default:
		compare = byDue(true)
	}
	slices.SortStableFunc(sorted, compare)
	return sorted
}

func (e *Engine) byTitle(a, b task.Task) int {
	return e.collator.CompareString(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

func byDue(desc bool) func(a, b task.Task) int {
	return func(a, b task.Task) int {
		da, okA := a.Due()
		db, okB := b.Due()
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		if desc {
			return db.Compare(da)
		}
		return da.Compare(db)
	}
}
