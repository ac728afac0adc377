package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time and financial reports",
	Long: `Summarize tracked time, cost, revenue and profit across the
projects you can see, with per-project financials and per-person time.

Examples:
  tasko report
  tasko report --range 30d
  tasko report --range 1y --top 10`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var (
	reportRange string
	reportTop   int
	reportSync  bool
)

func init() {
	reportCmd.Flags().StringVarP(&reportRange, "range", "r", "all", "Tasks created within 7d, 30d, 90d, 1y or all")
	reportCmd.Flags().IntVar(&reportTop, "top", 5, "Rows per ranking")
	reportCmd.Flags().BoolVarP(&reportSync, "sync", "s", false, "Pull from the server first")
}

func runReport(cmd *cobra.Command, args []string) error {
	now := time.Now()
	since, err := parseRange(reportRange, now)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.maybePull(reportSync)

	st := a.store.State()
	if cur := a.store.CurrentUser(); cur != nil {
		st.Tasks = a.store.TasksForUser(cur.ID)
		st.Projects = a.store.ProjectsForUser(cur.ID)
	}

	r := report.Build(st, report.Options{Since: since, Now: now})
	printReport(r, reportTop)
	return nil
}

// parseRange turns a range name into the earliest creation time it keeps.
// "all" returns the zero time.
func parseRange(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return time.Time{}, nil
	case "7d":
		return now.AddDate(0, 0, -7), nil
	case "30d":
		return now.AddDate(0, 0, -30), nil
	case "90d":
		return now.AddDate(0, 0, -90), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid range %q (7d, 30d, 90d, 1y, all)", s)
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}

func printReport(r report.Report, top int) {
	fmt.Println()
	fmt.Printf("Tasks       %d  (%d completed, %d%%)  %d in progress, %d overdue\n",
		r.Tasks, r.Completed, percent(r.Completed, r.Tasks), r.InProgress, r.Overdue)
	fmt.Printf("Time spent  %s  (avg %s per task)\n", formatMinutes(r.TimeSpent), formatMinutes(r.AvgTimePerTask))
	fmt.Printf("Projects    %d active of %d\n", r.ActiveProjects, r.Projects)
	fmt.Printf("Teams       %d members across %d teams\n", r.TeamMembers, r.Teams)
	fmt.Printf("Clients     %d active of %d\n", r.ActiveClients, r.Clients)
	fmt.Println()
	fmt.Printf("Revenue %s   Cost %s   Profit %s   Margin %.1f%%\n",
		money(r.Revenue), money(r.Cost), money(r.Profit), r.Margin)

	fmt.Println()
	fmt.Println("By status")
	for _, s := range model.Statuses {
		fmt.Printf("  %-12s %d\n", s, r.ByStatus[s])
	}
	fmt.Println("By priority")
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		fmt.Printf("  %-12s %d\n", p, r.ByPriority[p])
	}

	if len(r.Financials) > 0 {
		fmt.Println()
		fmt.Printf("  %-24s  %9s  %12s  %12s  %12s  %7s\n", "Project", "Time", "Cost", "Revenue", "Profit", "Margin")
		fmt.Println(strings.Repeat("─", 86))
		for _, f := range r.Financials[:min(top, len(r.Financials))] {
			line := fmt.Sprintf("  %-24s  %9s  %12s  %12s  %12s  %6.1f%%",
				truncateName(f.Name, 24), formatMinutes(f.TimeSpent), money(f.Cost), money(f.Revenue), money(f.Profit), f.Margin)
			if f.OverBudget {
				line += fmt.Sprintf("  ⚠ over budget (%s)", money(*f.Budget))
			}
			fmt.Println(line)
		}
	}

	if len(r.People) > 0 {
		fmt.Println()
		fmt.Printf("  %-24s  %9s  %s\n", "Person", "Time", "Tasks")
		fmt.Println(strings.Repeat("─", 50))
		for _, p := range r.People[:min(top, len(r.People))] {
			fmt.Printf("  %-24s  %9s  %d/%d done\n", truncateName(p.Name, 24), formatMinutes(p.TimeSpent), p.Completed, p.Tasks)
		}
	}
	fmt.Println()
}

func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
