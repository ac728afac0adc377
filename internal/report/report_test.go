package report

import (
	"testing"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func workspace() store.State {
	start := now.Add(-3 * time.Hour)
	end := start.Add(time.Hour)
	yesterday := now.AddDate(0, 0, -1)

	return store.State{
		Users: []model.User{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Bo"}},
		Teams: []model.Team{{ID: "team", Members: []model.User{{ID: "u1"}, {ID: "u2"}}}},
		Clients: []model.Client{
			{ID: "c1", Status: model.ClientActive},
			{ID: "c2", Status: model.ClientInactive},
		},
		Projects: []model.Project{
			{ID: "p2", Name: "Logo"},
			{ID: "p1", Name: "Website", HourlyRate: model.Ptr(60.0), Budget: model.Ptr(100.0), Revenue: model.Ptr(500.0)},
		},
		Tasks: []model.Task{
			{
				ID: "t1", ProjectID: "p1", AssigneeID: "u1", Status: model.StatusDone, Priority: model.PriorityHigh,
				CreatedAt:    now.AddDate(0, 0, -2),
				TimeSpent:    60,
				TimeTracking: []model.TimeTrackingRecord{{ID: "s1", UserID: "u1", StartTime: start, EndTime: &end, Duration: 60}},
			},
			{
				ID: "t2", ProjectID: "p1", AssigneeID: "u2", Status: model.StatusInProgress, Priority: model.PriorityMedium,
				CreatedAt:  now.AddDate(0, 0, -2),
				DueDate:    &yesterday,
				TimeSpent:  30,
				HourlyRate: model.Ptr(120.0),
			},
			{
				ID: "t3", ProjectID: "p2", AssigneeID: "u1", Status: model.StatusTodo, Priority: model.PriorityLow,
				CreatedAt: now.AddDate(0, -2, 0),
				TimeSpent: 90,
			},
		},
	}
}

func statuses(todo, inProgress, done int) map[model.Status]int {
	m := map[model.Status]int{}
	for _, s := range model.Statuses {
		m[s] = 0
	}
	m[model.StatusTodo] = todo
	m[model.StatusInProgress] = inProgress
	m[model.StatusDone] = done
	return m
}

func TestBuild(t *testing.T) {
	website := ProjectFinancials{
		ProjectID: "p1", Name: "Website", Tasks: 2, Completed: 1,
		TimeSpent: 90, Cost: 120, AvgRate: 80,
		Budget: model.Ptr(100.0), Revenue: 500, Profit: 380, Margin: 76, OverBudget: true,
	}

	tests := []struct {
		name string
		opts Options
		want Report
	}{
		{
			name: "all time",
			opts: Options{Now: now},
			want: Report{
				Tasks: 3, Completed: 1, InProgress: 1, Overdue: 1,
				TimeSpent: 180, AvgTimePerTask: 60,
				Projects: 2, ActiveProjects: 2, Teams: 1, TeamMembers: 2, Clients: 2, ActiveClients: 1,
				Cost: 120, Revenue: 500, Profit: 380, Margin: 76,
				ByStatus:   statuses(1, 1, 1),
				ByPriority: map[model.Priority]int{model.PriorityLow: 1, model.PriorityMedium: 1, model.PriorityHigh: 1},
				Financials: []ProjectFinancials{
					website,
					{ProjectID: "p2", Name: "Logo", Tasks: 1, TimeSpent: 90},
				},
				People: []UserTime{
					{UserID: "u1", Name: "Ada", TimeSpent: 150, Tasks: 2, Completed: 1},
					{UserID: "u2", Name: "Bo", TimeSpent: 30, Tasks: 1},
				},
			},
		},
		{
			name: "last 30 days",
			opts: Options{Now: now, Since: now.AddDate(0, 0, -30)},
			want: Report{
				Tasks: 2, Completed: 1, InProgress: 1, Overdue: 1,
				TimeSpent: 90, AvgTimePerTask: 45,
				Projects: 2, ActiveProjects: 1, Teams: 1, TeamMembers: 2, Clients: 2, ActiveClients: 1,
				Cost: 120, Revenue: 500, Profit: 380, Margin: 76,
				ByStatus:   statuses(0, 1, 1),
				ByPriority: map[model.Priority]int{model.PriorityLow: 0, model.PriorityMedium: 1, model.PriorityHigh: 1},
				Financials: []ProjectFinancials{
					website,
					{ProjectID: "p2", Name: "Logo"},
				},
				People: []UserTime{
					{UserID: "u1", Name: "Ada", TimeSpent: 60, Tasks: 1, Completed: 1},
					{UserID: "u2", Name: "Bo", TimeSpent: 30, Tasks: 1},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(workspace(), tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmptyWorkspace(t *testing.T) {
	r := Build(store.State{}, Options{Now: now})
	if r.Tasks != 0 || r.AvgTimePerTask != 0 || r.Margin != 0 || r.Financials != nil || r.People != nil {
		t.Errorf("empty report = %+v", r)
	}
}

func TestTaskMinutesPrefersLargerSource(t *testing.T) {
	end := now
	closed := []model.TimeTrackingRecord{{ID: "s", StartTime: now.Add(-time.Hour), EndTime: &end, Duration: 45}}
	open := []model.TimeTrackingRecord{{ID: "o", StartTime: now}}

	tests := []struct {
		task model.Task
		want float64
	}{
		{model.Task{TimeSpent: 20, TimeTracking: closed}, 45},
		{model.Task{TimeSpent: 70, TimeTracking: closed}, 70},
		{model.Task{TimeTracking: open}, 0},
	}
	for _, tt := range tests {
		if got := TaskMinutes(tt.task); got != tt.want {
			t.Errorf("TaskMinutes(%+v) = %v, want %v", tt.task, got, tt.want)
		}
	}
}
