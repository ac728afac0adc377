// Package report aggregates workspace state into time and financial
// summaries. Every function here is pure.
package report

import (
	"sort"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
)

// Report is the workspace summary. Times are minutes, money is in the
// workspace currency rounded to cents.
type Report struct {
	Tasks      int
	Completed  int
	InProgress int
	Overdue    int

	TimeSpent      float64
	AvgTimePerTask float64

	Projects       int
	ActiveProjects int
	Teams          int
	TeamMembers    int
	Clients        int
	ActiveClients  int

	Cost    float64
	Revenue float64
	Profit  float64
	Margin  float64 // percent of revenue, 0 without revenue

	ByStatus   map[model.Status]int
	ByPriority map[model.Priority]int

	// Financials is ordered by profit, highest first
	Financials []ProjectFinancials
	// People is ordered by tracked time, highest first
	People []UserTime
}

// ProjectFinancials is one project's cost against its budget and revenue
type ProjectFinancials struct {
	ProjectID  string
	Name       string
	Tasks      int
	Completed  int
	TimeSpent  float64
	Cost       float64
	AvgRate    float64 // effective hourly rate over tracked time
	Budget     *float64
	Revenue    float64
	Profit     float64
	Margin     float64
	OverBudget bool
}

// UserTime is the time tracked on tasks assigned to one user
type UserTime struct {
	UserID    string
	Name      string
	TimeSpent float64
	Tasks     int
	Completed int
}

// Options narrows a report
type Options struct {
	// Since drops tasks created before it. Zero keeps every task.
	Since time.Time
	Now   time.Time
}

// TaskMinutes is the time booked on a task: the larger of its closed
// sessions and its recorded TimeSpent, so manual entries are not lost.
func TaskMinutes(t model.Task) float64 {
	return max(model.TimeSpentFrom(t.TimeTracking), t.TimeSpent)
}

// TaskCost prices a task at its own rate, falling back to fallback when the
// task has none
func TaskCost(t model.Task, fallback *float64) float64 {
	if t.HourlyRate != nil && *t.HourlyRate > 0 {
		return model.CalculateCost(TaskMinutes(t), t.HourlyRate)
	}
	return model.CalculateCost(TaskMinutes(t), fallback)
}

// Build computes the report for st
func Build(st store.State, opts Options) Report {
	tasks := st.Tasks
	if !opts.Since.IsZero() {
		tasks = nil
		for _, t := range st.Tasks {
			if !t.CreatedAt.Before(opts.Since) {
				tasks = append(tasks, t)
			}
		}
	}

	r := Report{
		Tasks:      len(tasks),
		Projects:   len(st.Projects),
		Teams:      len(st.Teams),
		Clients:    len(st.Clients),
		ByStatus:   make(map[model.Status]int),
		ByPriority: make(map[model.Priority]int),
	}
	for _, s := range model.Statuses {
		r.ByStatus[s] = 0
	}
	for _, p := range []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh} {
		r.ByPriority[p] = 0
	}

	rates := make(map[string]*float64, len(st.Projects))
	for _, p := range st.Projects {
		rates[p.ID] = p.HourlyRate
	}

	byProject := make(map[string][]model.Task)
	for _, t := range tasks {
		r.ByStatus[t.Status]++
		r.ByPriority[t.Priority]++
		switch t.Status {
		case model.StatusDone:
			r.Completed++
		case model.StatusInProgress:
			r.InProgress++
		}
		if t.IsOverdue(opts.Now) {
			r.Overdue++
		}
		r.TimeSpent += TaskMinutes(t)
		r.Cost += TaskCost(t, rates[t.ProjectID])
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}
	if r.Tasks > 0 {
		r.AvgTimePerTask = r.TimeSpent / float64(r.Tasks)
	}

	for _, team := range st.Teams {
		r.TeamMembers += len(team.Members)
	}
	for _, c := range st.Clients {
		if c.Status == model.ClientActive {
			r.ActiveClients++
		}
	}

	for _, p := range st.Projects {
		f := projectFinancials(p, byProject[p.ID])
		if f.Tasks > f.Completed {
			r.ActiveProjects++
		}
		r.Revenue += f.Revenue
		r.Financials = append(r.Financials, f)
	}
	sort.SliceStable(r.Financials, func(i, j int) bool { return r.Financials[i].Profit > r.Financials[j].Profit })

	r.Cost = model.Round2(r.Cost)
	r.Revenue = model.Round2(r.Revenue)
	r.Profit = model.Round2(r.Revenue - r.Cost)
	r.Margin = margin(r.Profit, r.Revenue)

	r.People = peopleTime(st.Users, tasks)
	return r
}

func projectFinancials(p model.Project, tasks []model.Task) ProjectFinancials {
	f := ProjectFinancials{
		ProjectID: p.ID,
		Name:      p.Name,
		Tasks:     len(tasks),
		Budget:    p.Budget,
	}
	for _, t := range tasks {
		if t.Status == model.StatusDone {
			f.Completed++
		}
		f.TimeSpent += TaskMinutes(t)
		f.Cost += TaskCost(t, p.HourlyRate)
	}
	f.Cost = model.Round2(f.Cost)
	if f.TimeSpent > 0 {
		f.AvgRate = model.Round2(f.Cost / (f.TimeSpent / 60))
	}
	if p.Revenue != nil {
		f.Revenue = *p.Revenue
	}
	f.Profit = model.Round2(f.Revenue - f.Cost)
	f.Margin = margin(f.Profit, f.Revenue)
	f.OverBudget = p.Budget != nil && *p.Budget > 0 && f.Cost > *p.Budget
	return f
}

func peopleTime(users []model.User, tasks []model.Task) []UserTime {
	var out []UserTime
	for _, u := range users {
		ut := UserTime{UserID: u.ID, Name: u.Name}
		for _, t := range tasks {
			if t.AssigneeID != u.ID {
				continue
			}
			ut.Tasks++
			ut.TimeSpent += TaskMinutes(t)
			if t.Status == model.StatusDone {
				ut.Completed++
			}
		}
		out = append(out, ut)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeSpent > out[j].TimeSpent })
	return out
}

func margin(profit, revenue float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return model.Round2(profit / revenue * 100)
}
