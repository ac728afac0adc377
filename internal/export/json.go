package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/existflow/tasko/internal/model"
)

// Person is a user reference inlined into a JSON export
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TaskDocument is the task part of a JSON export
type TaskDocument struct {
	ID                      string         `json:"id"`
	Title                   string         `json:"title"`
	Description             string         `json:"description"`
	Status                  model.Status   `json:"status"`
	Priority                model.Priority `json:"priority"`
	Assignee                *Person        `json:"assignee"`
	CreatedBy               *Person        `json:"createdBy"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
	DueDate                 *time.Time     `json:"dueDate"`
	TotalTimeSpent          float64        `json:"totalTimeSpent"`
	TotalTimeSpentFormatted string         `json:"totalTimeSpentFormatted"`
}

// SessionDocument is one time-tracking record with its user resolved
type SessionDocument struct {
	ID                string     `json:"id"`
	User              *Person    `json:"user"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           *time.Time `json:"endTime"`
	Duration          float64    `json:"duration"`
	DurationFormatted string     `json:"durationFormatted"`
	Description       string     `json:"description,omitempty"`
}

// Document is the full JSON export
type Document struct {
	Task         TaskDocument      `json:"task"`
	TimeTracking []SessionDocument `json:"timeTracking"`
	ExportedAt   time.Time         `json:"exportedAt"`
}

// BuildDocument assembles the JSON export of task
func BuildDocument(task model.Task, users []model.User, now time.Time) Document {
	dir := newDirectory(users)
	total := TotalMinutes(task)

	doc := Document{
		Task: TaskDocument{
			ID:                      task.ID,
			Title:                   task.Title,
			Description:             task.Description,
			Status:                  task.Status,
			Priority:                task.Priority,
			Assignee:                dir.person(task.AssigneeID),
			CreatedBy:               dir.person(task.CreatedByID),
			CreatedAt:               task.CreatedAt,
			UpdatedAt:               task.UpdatedAt,
			DueDate:                 task.DueDate,
			TotalTimeSpent:          total,
			TotalTimeSpentFormatted: FormatDuration(total),
		},
		TimeTracking: make([]SessionDocument, 0, len(task.TimeTracking)),
		ExportedAt:   now.UTC(),
	}
	for _, r := range task.TimeTracking {
		doc.TimeTracking = append(doc.TimeTracking, SessionDocument{
			ID:                r.ID,
			User:              dir.person(r.UserID),
			StartTime:         r.StartTime,
			EndTime:           r.EndTime,
			Duration:          r.Duration,
			DurationFormatted: FormatDuration(r.Duration),
			Description:       r.Description,
		})
	}
	return doc
}

// WriteJSON writes the indented JSON export of task
func WriteJSON(w io.Writer, task model.Task, users []model.User, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDocument(task, users, now))
}

func (d directory) person(id string) *Person {
	u, ok := d[id]
	if !ok {
		return nil
	}
	return &Person{ID: u.ID, Name: u.Name, Email: u.Email}
}
