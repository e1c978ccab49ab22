package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"planner/internal/config"
	"planner/internal/planner"
	"planner/internal/search"
	"planner/internal/stats"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/validate"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
)

const capBarWidth = 20

var (
	markStyle    = lipgloss.NewStyle().Reverse(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Marker renders search matches in reverse video.
func Marker(match string) string {
	return markStyle.Render(match)
}

type formState struct {
	taskID string
	values [4]string
	index  int
}

type Model struct {
	ctx        context.Context
	planner    *planner.Planner
	cfg        config.Config
	tasks      []task.Task
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	form       *formState
}

func New(ctx context.Context, p *planner.Planner, cfg config.Config) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:     ctx,
		planner: p,
		cfg:     cfg,
		input:   ti,
		mode:    modeList,
		status:  fmt.Sprintf("Press '%s' to add, '%s' to search, '%s' to change sort.", cfg.Keys.Add, cfg.Keys.Search, cfg.Keys.Sort),
	}
	m.refresh()
	return m
}

func Run(ctx context.Context, p *planner.Planner, cfg config.Config) error {
	program := tea.NewProgram(New(ctx, p, cfg), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.form != nil {
			return m.updateFormMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		if m.mode == modeSearch {
			return m.updateSearchMode(msg.String(), msg)
		}
		return m.updateListMode(msg.String())
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

// refresh recomputes the visible list from the store's filter and sort.
func (m *Model) refresh() {
	m.tasks = m.planner.View()
	m.cursor = clampCursor(m.cursor, len(m.tasks))
}

func (m *Model) selectTask(id string) {
	for i, t := range m.tasks {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	keys := m.cfg.Keys
	switch key {
	case "ctrl+c", keys.Quit:
		return m, tea.Quit
	case keys.Down, "down":
		if len(m.tasks) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.tasks))
		}
	case keys.Add:
		return m.startForm(task.Task{})
	case keys.Edit:
		if len(m.tasks) == 0 {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.startForm(m.tasks[m.cursor])
	case keys.Delete:
		if len(m.tasks) == 0 {
			return m, nil
		}
		t := m.tasks[m.cursor]
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case keys.Detail:
		if len(m.tasks) == 0 {
			m.status = "No tasks"
			return m, nil
		}
		t := m.tasks[m.cursor]
		m.status = fmt.Sprintf("%s • created %s • updated %s", t.ID,
			t.CreatedAt.Local().Format("2006-01-02 15:04"), t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	case keys.Search:
		m.mode = modeSearch
		m.input.SetValue(m.planner.Tasks.Filter())
		m.input.Placeholder = "regex, @tag:Name or !overdue"
		m.input.CursorEnd()
		m.input.Focus()
		m.status = "Search: Enter to keep, Esc to clear"
	case keys.ClearQuery:
		m.planner.Tasks.SetFilter("")
		m.refresh()
		m.status = "Search cleared"
	case keys.Sort:
		next := search.ParseSortKey(m.planner.Tasks.Sort()).Next()
		m.planner.Tasks.SetSort(string(next))
		m.refresh()
		m.status = "Sorted by " + next.Label()
	case keys.ToggleCase:
		m.planner.Tasks.SetCaseInsensitive(!m.planner.Tasks.CaseInsensitive())
		m.refresh()
		m.status = "Case " + caseLabel(m.planner.Tasks.CaseInsensitive())
	}
	return m, nil
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.planner.Tasks.SetFilter("")
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		m.refresh()
		m.status = "Search cleared"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.input.Blur()
		m.mode = modeList
		m.status = fmt.Sprintf("%d of %d tasks", len(m.tasks), m.planner.Tasks.Len())
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.planner.Tasks.SetFilter(m.input.Value())
		m.refresh()
		if _, err := m.planner.Engine.Compile(m.input.Value(), m.planner.Tasks.CaseInsensitive()); err != nil &&
			search.Parse(m.input.Value()).Kind == search.KindPattern {
			m.status = "Pattern incomplete, showing all tasks"
		} else {
			m.status = fmt.Sprintf("%d of %d tasks", len(m.tasks), m.planner.Tasks.Len())
		}
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		_, err := m.planner.Delete(m.ctx, m.pendingDel.ID)
		switch {
		case errors.Is(err, task.ErrNotFound):
			m.status = "Task no longer exists"
		case err != nil:
			m.status = fmt.Sprintf("Deleted, but %v", err)
		default:
			m.status = "Deleted task"
		}
		m.refresh()
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

func formFields() []string {
	return []string{"title", "due date (YYYY-MM-DD)", "duration (minutes)", "tag"}
}

func (fs formState) draft() task.Draft {
	return task.Draft{Title: fs.values[0], DueDate: fs.values[1], Duration: fs.values[2], Tag: fs.values[3]}
}

func (m Model) startForm(t task.Task) (tea.Model, tea.Cmd) {
	m.form = &formState{taskID: t.ID}
	if t.ID != "" {
		d := task.DraftOf(t)
		m.form.values = [4]string{d.Title, d.DueDate, d.Duration, d.Tag}
	}
	m.mode = modeForm
	m.input.SetValue(m.form.values[0])
	m.input.Placeholder = formFields()[0]
	m.input.CursorEnd()
	m.input.Focus()
	m.status = m.formPrompt()
	return m, nil
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(formFields())
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.form = nil
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		m.status = "Cancelled"
		return m, nil
	case "tab", "down":
		m.moveField(wrapIndex(m.form.index+1, n))
		return m, nil
	case "shift+tab", "up":
		m.moveField(wrapIndex(m.form.index-1, n))
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.form.values[m.form.index] = m.input.Value()
		if m.form.index >= n-1 {
			return m.saveForm()
		}
		m.moveField(m.form.index + 1)
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) moveField(idx int) {
	m.form.values[m.form.index] = m.input.Value()
	m.form.index = idx
	m.input.SetValue(m.form.values[idx])
	m.input.Placeholder = formFields()[idx]
	m.input.CursorEnd()
	m.status = m.formPrompt()
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	var (
		t    task.Task
		warn string
		err  error
	)
	if m.form.taskID == "" {
		t, warn, err = m.planner.Add(m.ctx, m.form.draft())
	} else {
		t, warn, err = m.planner.Update(m.ctx, m.form.taskID, m.form.draft())
	}

	var verr *planner.ValidationError
	switch {
	case errors.As(err, &verr):
		m.moveField(firstInvalid(verr.Result))
		m.status = verr.Result.Error()
		return m, nil
	case errors.Is(err, task.ErrNotFound):
		m.status = "Task no longer exists"
	case errors.Is(err, storage.ErrUnavailable):
		m.status = fmt.Sprintf("Saved in memory only: %v", err)
	case err != nil:
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	case warn != "":
		m.status = "Saved. " + warn
	default:
		m.status = "Saved task"
	}

	m.form = nil
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
	m.refresh()
	m.selectTask(t.ID)
	return m, nil
}

func firstInvalid(r validate.Result) int {
	for i, f := range []validate.Field{validate.FieldTitle, validate.FieldDueDate, validate.FieldDuration, validate.FieldTag} {
		if _, ok := r.Errors[f]; ok {
			return i
		}
	}
	return 0
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	verb := "New task"
	if m.form.taskID != "" {
		verb = "Editing task"
	}
	return fmt.Sprintf("%s: %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		verb, formFields()[m.form.index], m.form.index+1, len(formFields()))
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString("Planner")
	b.WriteString("\n")
	b.WriteString(m.renderQueryLine())
	b.WriteString("\n\n")

	switch {
	case m.planner.Tasks.Len() == 0:
		b.WriteString(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add))
	case len(m.tasks) == 0:
		b.WriteString("No tasks match the search.")
	default:
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n---\n")

	switch {
	case m.form != nil:
		b.WriteString(m.renderFormBox())
		b.WriteString("\n")
		b.WriteString("Field: " + formFields()[m.form.index])
		b.WriteString("\n")
		b.WriteString(m.input.View())
	case m.mode == modeSearch:
		b.WriteString("Search: ")
		b.WriteString(m.input.View())
	default:
		b.WriteString(m.renderStats())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func (m Model) renderQueryLine() string {
	q := m.planner.Tasks.Filter()
	if q == "" {
		q = "(none)"
	}
	key := search.ParseSortKey(m.planner.Tasks.Sort())
	return dimStyle.Render(fmt.Sprintf("search: %s • sort: %s • case %s", q, key.Label(), caseLabel(m.planner.Tasks.CaseInsensitive())))
}

func (m Model) renderTaskList() string {
	unit := m.planner.Settings().DurationUnit
	var b strings.Builder
	for i, t := range m.tasks {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s  %s  [%s]  %s\n",
			cursor,
			m.planner.Highlight(t.DueDate),
			m.planner.Highlight(t.Title),
			m.planner.Highlight(t.Tag),
			stats.DisplayDuration(t.Duration, unit),
		))
	}
	return b.String()
}

func (m Model) renderFormBox() string {
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		val := m.form.values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-22s : %s\n", prefix, name, val))
	}
	return b.String()
}

func (m Model) renderStats() string {
	s := m.planner.Stats()
	unit := m.planner.Settings().DurationUnit
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Tasks: %d • Total: %s • Top tag: %s\n",
		s.Total, emptyPlaceholder(stats.DisplayDuration(s.TotalMinutes, unit)), s.TopTag))
	b.WriteString(fmt.Sprintf("This week: %s  %s %dh / %dh\n",
		emptyPlaceholder(stats.DisplayDuration(s.WeekMinutes, unit)), capBar(s.Cap), s.Cap.WeekHours, s.Cap.CapHours))
	b.WriteString(levelStyle(s.Cap.Level).Render(s.Cap.Status()))
	return b.String()
}

func capBar(c stats.Cap) string {
	filled := min(max(int(c.Percent/100*capBarWidth), 0), capBarWidth)
	bar := "[" + strings.Repeat("#", filled) + strings.Repeat(".", capBarWidth-filled) + "]"
	return levelStyle(c.Level).Render(bar)
}

func levelStyle(l stats.Level) lipgloss.Style {
	switch l {
	case stats.LevelWarning:
		return warningStyle
	case stats.LevelDanger:
		return dangerStyle
	default:
		return lipgloss.NewStyle()
	}
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • %s delete • %s detail • %s search • %s clear • %s sort • %s case • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Delete, k.Detail, k.Search, k.ClearQuery, k.Sort, k.ToggleCase, k.Quit)
}

func caseLabel(insensitive bool) string {
	if insensitive {
		return "insensitive"
	}
	return "sensitive"
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "0m"
	}
	return v
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
