package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"planner/internal/planner"
	"planner/internal/stats"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/transfer"
)

func handleList(p *planner.Planner, query, sortKey string, caseSensitive bool) error {
	p.Tasks.SetFilter(query)
	if sortKey != "" {
		p.Tasks.SetSort(sortKey)
	}
	if caseSensitive {
		p.Tasks.SetCaseInsensitive(false)
	}

	tasks := p.View()
	if len(tasks) == 0 {
		if p.Tasks.Len() == 0 {
			fmt.Println("No tasks yet.")
		} else {
			fmt.Println("No tasks match the search.")
		}
		return nil
	}

	unit := p.Settings().DurationUnit
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DUE", "TITLE", "DURATION", "TAG")
	for _, tk := range tasks {
		t.Row(tk.ID, p.Highlight(tk.DueDate), p.Highlight(tk.Title), stats.DisplayDuration(tk.Duration, unit), p.Highlight(tk.Tag))
	}
	fmt.Println(t.Render())
	fmt.Printf("%d of %d tasks\n", len(tasks), p.Tasks.Len())
	return nil
}

func handleAdd(ctx context.Context, p *planner.Planner, d task.Draft) error {
	t, warning, err := p.Add(ctx, d)
	if err := describe(err); err != nil {
		return err
	}
	if warning != "" {
		warn("%s", warning)
	}
	fmt.Printf("Added %s\n", t.ID)
	return nil
}

type editFlags struct {
	title, due, duration, tag *string
}

func handleEdit(ctx context.Context, p *planner.Planner, id string, f editFlags) error {
	current, err := p.Tasks.Get(id)
	if err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	d := task.DraftOf(current)
	override(&d.Title, f.title)
	override(&d.DueDate, f.due)
	override(&d.Duration, f.duration)
	override(&d.Tag, f.tag)

	t, warning, err := p.Update(ctx, id, d)
	if err := describe(err); err != nil {
		return err
	}
	if warning != "" {
		warn("%s", warning)
	}
	fmt.Printf("Updated %s\n", t.ID)
	return nil
}

func override(dst *string, flag *string) {
	if flag != nil && *flag != "" {
		*dst = *flag
	}
}

func handleDelete(ctx context.Context, p *planner.Planner, id string) error {
	t, err := p.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	fmt.Printf("Deleted \"%s\"\n", t.Title)
	return nil
}

func handleStats(p *planner.Planner) error {
	s := p.Stats()
	unit := p.Settings().DurationUnit
	fmt.Printf("Tasks:      %d\n", s.Total)
	fmt.Printf("Total time: %s\n", stats.DisplayDuration(s.TotalMinutes, unit))
	fmt.Printf("Top tag:    %s\n", s.TopTag)
	fmt.Printf("This week:  %dh of %dh (%.0f%%)\n", s.Cap.WeekHours, s.Cap.CapHours, s.Cap.Percent)

	c := color.New(color.FgGreen)
	switch s.Cap.Level {
	case stats.LevelWarning:
		c = color.New(color.FgYellow)
	case stats.LevelDanger:
		c = color.New(color.FgRed, color.Bold)
	}
	c.Println(s.Cap.Status())
	return nil
}

func handleExport(p *planner.Planner, format, out string) error {
	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}
	if out == "-" {
		return p.Export(os.Stdout, f)
	}
	if out == "" {
		out = transfer.DefaultFileName(time.Now(), f)
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := p.Export(file, f); err != nil {
		_ = file.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Printf("Exported %d tasks to %s\n", p.Tasks.Len(), out)
	return nil
}

func handleImport(ctx context.Context, p *planner.Planner, path, format string) error {
	f := transfer.FormatFromPath(path)
	if format != "" {
		parsed, err := transfer.ParseFormat(format)
		if err != nil {
			return err
		}
		f = parsed
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer file.Close()

	n, err := p.Import(ctx, file, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	fmt.Printf("Imported %d tasks\n", n)
	return nil
}

func handleClear(ctx context.Context, p *planner.Planner, all bool) error {
	if all {
		if err := p.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("Deleted all tasks and reset settings")
		return nil
	}
	if err := p.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Deleted all tasks")
	return nil
}

func handleSettings(ctx context.Context, p *planner.Planner, weeklyCap int, unit string) error {
	s := p.Settings()
	if weeklyCap == 0 && unit == "" {
		fmt.Printf("weekly cap:    %dh\n", s.WeeklyCap)
		fmt.Printf("duration unit: %s\n", s.DurationUnit)
		return nil
	}
	if weeklyCap != 0 {
		s.WeeklyCap = weeklyCap
	}
	if unit != "" {
		s.DurationUnit = storage.DurationUnit(unit)
	}
	if err := p.SaveSettings(ctx, s); err != nil {
		return err
	}
	fmt.Println("Settings saved")
	return nil
}

// describe turns a validation failure into one line per field.
func describe(err error) error {
	var verr *planner.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	for field, msg := range verr.Result.Errors {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s: %s\n", field, msg)
	}
	return errors.New("task not saved")
}
