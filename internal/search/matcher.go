package search

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrInvalidPattern = errors.New("invalid search pattern")

type Span struct {
	Start int
	End   int
}

// Matcher is a compiled search pattern.
type Matcher struct {
	re *regexp.Regexp
}

func Compile(pattern string, caseInsensitive bool) (*Matcher, error) {
	expr := pattern
	if caseInsensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &Matcher{re: re}, nil
}

func (m *Matcher) Test(text string) bool {
	return m.re.MatchString(text)
}

// FindAll returns the non-overlapping match spans of text, in order, as byte offsets.
func (m *Matcher) FindAll(text string) []Span {
	idx := m.re.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(idx))
	for _, loc := range idx {
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}
