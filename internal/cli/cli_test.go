package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/google/go-cmp/cmp"
)

func projectID(p model.Project) string   { return p.ID }
func projectName(p model.Project) string { return p.Name }

func TestResolve(t *testing.T) {
	projects := []model.Project{
		{ID: "a1b2c3d4-0000", Name: "Website"},
		{ID: "a1b2ffff-0000", Name: "Mobile"},
		{ID: "c9d8e7f6-0000", Name: "Backend"},
	}

	tests := []struct {
		ref     string
		want    string
		wantErr string
	}{
		{ref: "c9d8e7f6-0000", want: "c9d8e7f6-0000"},
		{ref: "a1b2c3", want: "a1b2c3d4-0000"},
		{ref: "mobile", want: "a1b2ffff-0000"},
		{ref: "a1b2", wantErr: "ambiguous"},
		{ref: "zzz", wantErr: "not found"},
		{ref: "  ", wantErr: "required"},
	}
	for _, tt := range tests {
		got, err := resolve(projects, tt.ref, "project", projectID, projectName)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("resolve(%q) error = %v, want %q", tt.ref, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolve(%q): %v", tt.ref, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("resolve(%q) = %s, want %s", tt.ref, got.ID, tt.want)
		}
	}
}

func TestResolveExactIDBeatsPrefix(t *testing.T) {
	projects := []model.Project{
		{ID: "abc", Name: "One"},
		{ID: "abcdef", Name: "Two"},
	}
	got, err := resolve(projects, "abc", "project", projectID, projectName)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name != "One" {
		t.Errorf("got %s, want One", got.Name)
	}
}

func TestParseDue(t *testing.T) {
	ref := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	got, err := parseDue("2025-04-01", ref)
	if err != nil {
		t.Fatalf("iso date: %v", err)
	}
	if want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("iso date = %v, want %v", got, want)
	}

	got, err = parseDue("tomorrow", ref)
	if err != nil {
		t.Fatalf("tomorrow: %v", err)
	}
	if y, m, d := got.Date(); y != 2025 || m != time.March || d != 11 {
		t.Errorf("tomorrow = %v", got)
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[float64]string{
		0:    "0m",
		-4:   "0m",
		42:   "42m",
		65:   "1h 05m",
		59.6: "1h 00m",
		150:  "2h 30m",
	}
	for in, want := range tests {
		if got := formatMinutes(in); got != want {
			t.Errorf("formatMinutes(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseMinutes(t *testing.T) {
	good := map[string]float64{
		"25":    25,
		"12.5":  12.5,
		"12:30": 12.5,
		"0:45":  0.75,
	}
	for in, want := range good {
		got, err := parseMinutes(in)
		if err != nil {
			t.Errorf("parseMinutes(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseMinutes(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"-3", "abc", "1:75", "x:10"} {
		if _, err := parseMinutes(in); err == nil {
			t.Errorf("parseMinutes(%q) accepted", in)
		}
	}
}

func TestSortTasksNaturalOrder(t *testing.T) {
	tasks := []model.Task{
		{Title: "Task 10", Status: model.StatusTodo, Priority: model.PriorityMedium},
		{Title: "Finished", Status: model.StatusDone, Priority: model.PriorityHigh},
		{Title: "task 2", Status: model.StatusTodo, Priority: model.PriorityMedium},
		{Title: "Urgent", Status: model.StatusTodo, Priority: model.PriorityHigh},
	}
	sortTasks(tasks)

	var got []string
	for _, tk := range tasks {
		got = append(got, tk.Title)
	}
	want := []string{"Urgent", "task 2", "Task 10", "Finished"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterTasks(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", ProjectID: "p1", AssigneeID: "u1", Status: model.StatusTodo},
		{ID: "2", ProjectID: "p1", AssigneeID: "u2", Status: model.StatusTodo},
		{ID: "3", ProjectID: "p2", AssigneeID: "u1", Status: model.StatusDone},
	}

	ids := func(ts []model.Task) []string {
		var out []string
		for _, tk := range ts {
			out = append(out, tk.ID)
		}
		return out
	}

	if diff := cmp.Diff([]string{"1", "2"}, ids(filterTasks(tasks, taskFilter{}))); diff != "" {
		t.Errorf("default filter (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "3"}, ids(filterTasks(tasks, taskFilter{assigneeID: "u1", includeDone: true}))); diff != "" {
		t.Errorf("mine filter (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3"}, ids(filterTasks(tasks, taskFilter{projectID: "p2", includeDone: true}))); diff != "" {
		t.Errorf("project filter (-want +got):\n%s", diff)
	}
}

func TestParseTags(t *testing.T) {
	got := parseTags(" ui, ,backend ,")
	if diff := cmp.Diff([]string{"ui", "backend"}, got); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestRunningTask(t *testing.T) {
	end := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "closed", TimeTracking: []model.TimeTrackingRecord{{ID: "s1", UserID: "u1", EndTime: &end}}},
		{ID: "other", TimeTracking: []model.TimeTrackingRecord{{ID: "s2", UserID: "u2"}}},
		{ID: "mine", TimeTracking: []model.TimeTrackingRecord{{ID: "s3", UserID: "u1"}}},
	}
	got, ok := runningTask(tasks, "u1")
	if !ok || got.ID != "mine" {
		t.Errorf("runningTask = %q, %v", got.ID, ok)
	}
	if _, ok := runningTask(tasks[:1], "u1"); ok {
		t.Error("closed session reported as running")
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	tests := map[string]time.Time{
		"all": {},
		"":    {},
		"7d":  time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC),
		"30D": time.Date(2025, 2, 8, 14, 30, 0, 0, time.UTC),
		"1y":  time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC),
	}
	for in, want := range tests {
		got, err := parseRange(in, now)
		if err != nil {
			t.Errorf("parseRange(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseRange(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseRange("2w", now); err == nil {
		t.Error("parseRange accepted 2w")
	}
}

func TestMoney(t *testing.T) {
	tests := map[float64]string{
		0:        "0.00",
		1234.5:   "1,234.50",
		-380.25:  "-380.25",
		12000000: "12,000,000.00",
	}
	for in, want := range tests {
		if got := money(in); got != want {
			t.Errorf("money(%v) = %q, want %q", in, got, want)
		}
	}
}
