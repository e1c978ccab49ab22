package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"golang.org/x/text/language"

	"planner/internal/config"
	"planner/internal/logging"
	"planner/internal/planner"
	"planner/internal/search"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/ui"
)

var (
	app        = kingpin.New("planner", "Personal task planner with regex search")
	configPath = app.Flag("config", "Path to config.toml").Envar(config.EnvPrefix + "_CONFIG").String()

	tuiCmd = app.Command("tui", "Open the interactive planner").Default()

	listCmd           = app.Command("list", "Print tasks")
	listQuery         = listCmd.Flag("query", "Search: regex, @tag:Name or !overdue").Short('q').String()
	listSort          = listCmd.Flag("sort", "Sort key").Short('s').Enum(sortKeys()...)
	listCaseSensitive = listCmd.Flag("case-sensitive", "Match case when searching").Bool()

	addCmd      = app.Command("add", "Add a task")
	addTitle    = addCmd.Arg("title", "Task title").Required().String()
	addDue      = addCmd.Flag("due", "Due date (YYYY-MM-DD)").Required().String()
	addDuration = addCmd.Flag("duration", "Duration in minutes").Required().String()
	addTag      = addCmd.Flag("tag", "Tag").Required().String()

	editCmd      = app.Command("edit", "Edit a task; omitted fields keep their value")
	editID       = editCmd.Arg("id", "Task ID").Required().String()
	editTitle    = editCmd.Flag("title", "Task title").String()
	editDue      = editCmd.Flag("due", "Due date (YYYY-MM-DD)").String()
	editDuration = editCmd.Flag("duration", "Duration in minutes").String()
	editTag      = editCmd.Flag("tag", "Tag").String()

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	statsCmd = app.Command("stats", "Show totals and weekly cap progress")

	exportCmd    = app.Command("export", "Export tasks")
	exportFormat = exportCmd.Flag("format", "json or yaml").Default("json").Enum("json", "yaml")
	exportOut    = exportCmd.Flag("out", "Output file, - for stdout").Short('o').String()

	importCmd    = app.Command("import", "Replace all tasks with an exported file")
	importFile   = importCmd.Arg("file", "File to import").Required().ExistingFile()
	importFormat = importCmd.Flag("format", "json or yaml; guessed from the extension when omitted").Enum("json", "yaml")

	clearCmd = app.Command("clear", "Delete every task")
	clearAll = clearCmd.Flag("all", "Also reset settings").Bool()

	settingsCmd  = app.Command("settings", "Show or change settings")
	settingsCap  = settingsCmd.Flag("weekly-cap", "Weekly cap in hours").Int()
	settingsUnit = settingsCmd.Flag("unit", "Duration display unit").Enum(string(storage.UnitMinutes), string(storage.UnitHours))
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	path := *configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOut := io.Writer(os.Stderr)
	if command == tuiCmd.FullCommand() {
		f, err := logging.OpenFile(cfg.LogPath)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log := logging.Setup(logging.ParseLevel(cfg.LogLevel), logOut)

	marker := search.MarkFormat(cfg.HighlightMarker)
	if command == tuiCmd.FullCommand() {
		marker = ui.Marker
	} else if !color.NoColor {
		hl := color.New(color.FgYellow, color.Bold)
		marker = func(s string) string { return hl.Sprint(s) }
	}

	var persist planner.Persistence
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Error("storage unavailable, working in memory", "path", cfg.DBPath, "err", err)
		persist = detached{err: err}
	} else {
		defer db.Close()
		persist = db
	}

	p := planner.New(
		task.NewStore(task.WithLogger(log)),
		search.NewEngine(
			search.WithLocale(language.Make(cfg.Locale)),
			search.WithMarker(marker),
			search.WithLogger(log),
		),
		persist,
		planner.WithLogger(log),
	)
	if err := p.Load(ctx); err != nil {
		warn("could not load saved data: %v", err)
	}
	p.Tasks.SetSort(cfg.DefaultSort)
	p.Tasks.SetCaseInsensitive(cfg.CaseInsensitive)

	switch command {
	case tuiCmd.FullCommand():
		return ui.Run(ctx, p, cfg)
	case listCmd.FullCommand():
		return handleList(p, *listQuery, *listSort, *listCaseSensitive)
	case addCmd.FullCommand():
		return handleAdd(ctx, p, task.Draft{Title: *addTitle, DueDate: *addDue, Duration: *addDuration, Tag: *addTag})
	case editCmd.FullCommand():
		return handleEdit(ctx, p, *editID, editFlags{title: editTitle, due: editDue, duration: editDuration, tag: editTag})
	case deleteCmd.FullCommand():
		return handleDelete(ctx, p, *deleteID)
	case statsCmd.FullCommand():
		return handleStats(p)
	case exportCmd.FullCommand():
		return handleExport(p, *exportFormat, *exportOut)
	case importCmd.FullCommand():
		return handleImport(ctx, p, *importFile, *importFormat)
	case clearCmd.FullCommand():
		return handleClear(ctx, p, *clearAll)
	case settingsCmd.FullCommand():
		return handleSettings(ctx, p, *settingsCap, *settingsUnit)
	default:
		log.Warn("unknown command", "command", command)
		return fmt.Errorf("unknown command %q", command)
	}
}

func sortKeys() []string {
	keys := search.SortKeys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}

// detached stands in for the database when it cannot be opened. Every call
// reports the open failure so the planner keeps working in memory.
type detached struct {
	err error
}

func (d detached) LoadTasks(context.Context) ([]task.Task, error) { return nil, d.err }

func (d detached) SaveTasks(context.Context, []task.Task) error { return d.err }

func (d detached) LoadSettings(context.Context) (storage.Settings, error) {
	return storage.DefaultSettings(), d.err
}

func (d detached) SaveSettings(context.Context, storage.Settings) error { return d.err }

func (d detached) Clear(context.Context) error { return d.err }
