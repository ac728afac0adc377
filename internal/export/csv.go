package export

import (
	"encoding/csv"
	"io"

	"github.com/existflow/tasko/internal/model"
)

const timeLayout = "Jan 2, 2006 15:04"

// WriteCSV writes a "Task Details" block of label/value rows, a blank row and
// then the time-tracking history with one row per session
func WriteCSV(w io.Writer, task model.Task, users []model.User) error {
	dir := newDirectory(users)

	description := task.Description
	if description == "" {
		description = "No description"
	}
	due := "No due date"
	if task.DueDate != nil {
		due = formatDate(task.DueDate)
	}
	created, updated := task.CreatedAt, task.UpdatedAt

	rows := [][]string{
		{"Task Details"},
		{"Title", task.Title},
		{"Description", description},
		{"Status", string(task.Status)},
		{"Priority", string(task.Priority)},
		{"Assignee", dir.name(task.AssigneeID, "Unassigned")},
		{"Created By", dir.name(task.CreatedByID, "Unknown")},
		{"Created At", formatDate(&created)},
		{"Updated At", formatDate(&updated)},
		{"Due Date", due},
		{"Total Time Spent", FormatDuration(TotalMinutes(task))},
		{"", ""},
		{"Time Tracking History"},
		{"User", "Start Time", "End Time", "Duration", "Description"},
	}
	if len(task.TimeTracking) == 0 {
		rows = append(rows, []string{"No time records"})
	}
	for _, r := range task.TimeTracking {
		end := "In Progress"
		if r.EndTime != nil {
			end = r.EndTime.Format(timeLayout)
		}
		rows = append(rows, []string{
			dir.name(r.UserID, "Unknown User"),
			r.StartTime.Format(timeLayout),
			end,
			FormatDuration(r.Duration),
			r.Description,
		})
	}

	// WriteAll flushes and reports any write error
	return csv.NewWriter(w).WriteAll(rows)
}
