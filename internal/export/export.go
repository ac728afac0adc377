// Package export renders a task and its time-tracking history as CSV or JSON
// for download. Exports are one-way; nothing reads them back.
package export

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/model"
)

const dateLayout = "Jan 2, 2006"

var nonSlug = regexp.MustCompile(`[^a-z0-9]`)

// FileName returns task-<slug>-<yyyy-mm-dd>.<ext>, where slug is the
// lowercased title with every other character replaced by a dash
func FileName(task model.Task, ext string, now time.Time) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(task.Title), "-")
	return fmt.Sprintf("task-%s-%s.%s", slug, now.UTC().Format("2006-01-02"), strings.TrimPrefix(ext, "."))
}

// FormatDuration renders minutes as MM:SS, or HH:MM:SS from one hour up.
// Negative input renders as 00:00.
func FormatDuration(minutes float64) string {
	if minutes < 0 || math.IsNaN(minutes) {
		return "00:00"
	}
	total := int64(math.Floor(minutes * 60))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// TotalMinutes sums closed sessions
func TotalMinutes(task model.Task) float64 {
	return model.TimeSpentFrom(task.TimeTracking)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}

type directory map[string]model.User

func newDirectory(users []model.User) directory {
	d := make(directory, len(users))
	for _, u := range users {
		d[u.ID] = u
	}
	return d
}

func (d directory) name(id, fallback string) string {
	if u, ok := d[id]; ok && u.Name != "" {
		return u.Name
	}
	return fallback
}
