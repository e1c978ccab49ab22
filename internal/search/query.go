package search

import "strings"

const (
	tagPrefix      = "@tag:"
	overdueCommand = "!overdue"
)

type Kind int

const (
	KindPattern Kind = iota
	KindTag
	KindOverdue
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindOverdue:
		return "overdue"
	default:
		return "pattern"
	}
}

// Query is a classified search string. Value is the tag for KindTag, the
// raw pattern for KindPattern and empty for KindOverdue.
type Query struct {
	Kind  Kind
	Value string
}

// Parse classifies raw. Directives win over pattern search: "@tag:" prefix
// first, then the "!overdue" literal.
func Parse(raw string) Query {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, tagPrefix) {
		return Query{Kind: KindTag, Value: strings.TrimSpace(trimmed[len(tagPrefix):])}
	}
	if strings.EqualFold(raw, overdueCommand) {
		return Query{Kind: KindOverdue}
	}
	return Query{Kind: KindPattern, Value: raw}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
