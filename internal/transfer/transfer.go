// Package transfer reads and writes task batches for export and import.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"planner/internal/task"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrInvalidImportData = errors.New("invalid import data")
	ErrUnknownFormat     = errors.New("unknown format")
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func DefaultFileName(now time.Time, f Format) string {
	return fmt.Sprintf("planner-export-%s.%s", now.Format(task.DateLayout), f)
}

func Export(w io.Writer, tasks []task.Task, f Format) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Import decodes a batch and checks every record before returning any of it.
func Import(r io.Reader, f Format) ([]task.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var tasks []task.Task
	switch f {
	case FormatJSON:
		trimmed := strings.TrimSpace(string(data))
		if !strings.HasPrefix(trimmed, "[") {
			return nil, fmt.Errorf("%w: must be an array of tasks", ErrInvalidImportData)
		}
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImportData, err)
		}
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImportData, err)
		}
		if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: must be a list of tasks", ErrInvalidImportData)
		}
		if err := doc.Content[0].Decode(&tasks); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImportData, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	for i, t := range tasks {
		if missing := missingFields(t); len(missing) > 0 {
			return nil, fmt.Errorf("%w: task %d missing %s", ErrInvalidImportData, i, strings.Join(missing, ", "))
		}
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

func missingFields(t task.Task) []string {
	var missing []string
	if strings.TrimSpace(t.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(t.DueDate) == "" {
		missing = append(missing, "dueDate")
	}
	if t.Duration <= 0 {
		missing = append(missing, "duration")
	}
	if strings.TrimSpace(t.Tag) == "" {
		missing = append(missing, "tag")
	}
	return missing
}
