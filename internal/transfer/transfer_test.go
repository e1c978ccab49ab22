package transfer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/task"
)

func collection(t *testing.T) []task.Task {
	t.Helper()
	clock := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s := task.NewStore(task.WithNow(func() time.Time {
		clock = clock.Add(1500 * time.Millisecond)
		return clock
	}))
	for _, d := range []task.Draft{
		{Title: "Math Homework", DueDate: "2024-06-09", Duration: "90", Tag: "Study"},
		{Title: "Run", DueDate: "2024-06-10", Duration: "42.5", Tag: "Sports"},
	} {
		_, err := s.Add(d)
		require.NoError(t, err)
	}
	return s.All()
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			want := collection(t)

			var buf bytes.Buffer
			require.NoError(t, Export(&buf, want, f))

			got, err := Import(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			s := task.NewStore()
			s.ReplaceAll(got)
			assert.Equal(t, want, s.All())
		})
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())

	got, err := Import(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImportRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		f    Format
	}{
		{"json object", `{"title":"x"}`, FormatJSON},
		{"json null", `null`, FormatJSON},
		{"json garbage", `[{"title":`, FormatJSON},
		{"json missing tag", `[{"title":"a","dueDate":"2024-01-01","duration":5}]`, FormatJSON},
		{"json zero duration", `[{"title":"a","dueDate":"2024-01-01","duration":0,"tag":"x"}]`, FormatJSON},
		{"json wrong type", `[{"title":"a","dueDate":"2024-01-01","duration":"5","tag":"x"}]`, FormatJSON},
		{"yaml mapping", "title: x\n", FormatYAML},
		{"yaml empty", "", FormatYAML},
		{"yaml missing title", "- dueDate: 2024-01-01\n  duration: 5\n  tag: x\n", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.in), tt.f)
			assert.ErrorIs(t, err, ErrInvalidImportData)
		})
	}
}

func TestImportWithoutIDs(t *testing.T) {
	got, err := Import(strings.NewReader(`[{"title":"a","dueDate":"2024-01-01","duration":5,"tag":"x"}]`), FormatJSON)
	require.NoError(t, err)

	s := task.NewStore()
	s.ReplaceAll(got)
	all := s.All()
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero())
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, FormatYAML, FormatFromPath("backup.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("backup"))
	assert.Equal(t, "planner-export-2024-06-10.json", DefaultFileName(time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC), FormatJSON))
}
