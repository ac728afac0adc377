package cli

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/existflow/tasko/internal/model"
	"github.com/maruel/natural"
	"github.com/tj/go-naturaldate"
	"golang.org/x/term"
)

var errNotLoggedIn = errors.New("not logged in, run 'tasko auth login'")

// resolve finds one item by exact id, unique id prefix or case-insensitive name
func resolve[T any](items []T, ref, kind string, id, name func(T) string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("%s required", kind)
	}
	for _, it := range items {
		if id(it) == ref {
			return it, nil
		}
	}

	var matches []T
	for _, it := range items {
		if strings.HasPrefix(id(it), ref) || (name != nil && strings.EqualFold(name(it), ref)) {
			matches = append(matches, it)
		}
	}
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%s not found: %s", kind, ref)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%s %q is ambiguous (%d matches)", kind, ref, len(matches))
	}
}

// parseDue accepts an ISO date or natural language ("friday", "in 3 days")
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	t, err := naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: %w", s, err)
	}
	if t.Equal(now) {
		return time.Time{}, fmt.Errorf("invalid due date %q", s)
	}
	return t, nil
}

// formatDue renders a due date relative to now
func formatDue(due *time.Time, now time.Time) string {
	if due == nil {
		return ""
	}
	return humanize.RelTime(*due, now, "ago", "from now")
}

// formatMinutes renders a duration in minutes as "1h 05m" or "42m"
func formatMinutes(minutes float64) string {
	if minutes <= 0 {
		return "0m"
	}
	total := int(math.Round(minutes))
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusRank(s model.Status) int {
	for i, v := range model.Statuses {
		if v == s {
			return i
		}
	}
	return len(model.Statuses)
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 0
	case model.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// sortTasks orders by status, then priority, then title in natural order
// so "Task 2" sorts before "Task 10"
func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
			return ra < rb
		}
		if pa, pb := priorityRank(a.Priority), priorityRank(b.Priority); pa != pb {
			return pa < pb
		}
		return natural.Less(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
}

func sortByName[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return natural.Less(strings.ToLower(name(items[i])), strings.ToLower(name(items[j])))
	})
}

func parseStatus(s string) (model.Status, error) {
	st := model.Status(strings.ToLower(s))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return st, nil
}

func parsePriority(s string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(s))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (low, medium, high)", s)
	}
	return p, nil
}

func parseRole(s string) (model.Role, error) {
	switch r := model.Role(strings.ToLower(s)); r {
	case model.RoleAdmin, model.RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q (admin, member)", s)
}

func parseTheme(s string) (model.Theme, error) {
	switch t := model.Theme(strings.ToLower(s)); t {
	case model.ThemeLight, model.ThemeDark, model.ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("invalid theme %q (light, dark, system)", s)
}

func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var stdin = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(passwordBytes)
}

func confirm(question string) bool {
	answer := prompt(question + " (y/N): ")
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}
