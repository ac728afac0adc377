package model

import "time"

// Status is the workflow state of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusTesting    Status = "testing"
	StatusReopen     Status = "reopen"
	StatusDone       Status = "done"
)

// Statuses lists every status in board order
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusTesting, StatusReopen, StatusDone}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Priority levels for tasks
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task represents a single unit of work
type Task struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Status       Status               `json:"status"`
	Priority     Priority             `json:"priority"`
	AssigneeID   string               `json:"assigneeId,omitempty"`
	CreatedByID  string               `json:"createdById"`
	ProjectID    string               `json:"projectId"`
	DueDate      *time.Time           `json:"dueDate,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Tags         []string             `json:"tags"`
	TimeEstimate *int                 `json:"timeEstimate,omitempty"` // minutes
	TimeSpent    float64              `json:"timeSpent"`              // minutes, derived from TimeTracking
	TimeStarted  *time.Time           `json:"timeStarted,omitempty"`  // set while a timer runs
	TimeTracking []TimeTrackingRecord `json:"timeTracking,omitempty"`
	HourlyRate   *float64             `json:"hourlyRate,omitempty"`
	Cost         float64              `json:"cost"`
}

// TimeTrackingRecord is one continuous work interval on a task
type TimeTrackingRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"` // nil while running
	Duration    float64    `json:"duration"`          // minutes, set on close
	Description string     `json:"description,omitempty"`
}

// Open reports whether the session is still running
func (r TimeTrackingRecord) Open() bool {
	return r.EndTime == nil
}

// Close sets the end time and duration of the session
func (r TimeTrackingRecord) Close(at time.Time) TimeTrackingRecord {
	end := at
	r.EndTime = &end
	r.Duration = Minutes(at.Sub(r.StartTime))
	return r
}

// OpenSessions returns the indexes of sessions without an end time
func OpenSessions(records []TimeTrackingRecord) []int {
	var idx []int
	for i, r := range records {
		if r.Open() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Clone returns a deep copy so callers can mutate without aliasing store state
func (t Task) Clone() Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.TimeTracking != nil {
		t.TimeTracking = append([]TimeTrackingRecord(nil), t.TimeTracking...)
	}
	return t
}

// IsOverdue returns true if the task is past its due date and not done
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return t.DueDate.Before(now)
}
