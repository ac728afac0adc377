package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/existflow/tasko/internal/export"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/timer"
	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Track time on a task",
	Long: `Start, pause and stop time tracking sessions on a task.

A task has at most one running session. Starting a task that already has one
picks it up instead of opening another.

Examples:
  tasko timer start 3f2a --watch
  tasko timer stop 3f2a
  tasko timer sessions 3f2a
  tasko timer edit 3f2a 91c0 --minutes 25 --note "pairing"`,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [task]",
	Short: "Start a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerStart,
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause [task]",
	Short: "Close the running session and keep the total",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runTimerClose(args[0], false) },
}

var timerStopCmd = &cobra.Command{
	Use:   "stop [task]",
	Short: "Close the running session and reset the counter",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runTimerClose(args[0], true) },
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume [task]",
	Short: "Open a new session after a pause",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerStart,
}

var timerStatusCmd = &cobra.Command{
	Use:   "status [task]",
	Short: "Show running timers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimerStatus,
}

var timerSessionsCmd = &cobra.Command{
	Use:     "sessions [task]",
	Aliases: []string{"history"},
	Short:   "List the sessions of a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTimerSessions,
}

var timerEditCmd = &cobra.Command{
	Use:   "edit [task] [session]",
	Short: "Correct the duration or note of a closed session",
	Args:  cobra.ExactArgs(2),
	RunE:  runTimerEdit,
}

var timerDeleteCmd = &cobra.Command{
	Use:   "delete [task] [session]",
	Short: "Remove a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runTimerDelete,
}

var timerResetCmd = &cobra.Command{
	Use:   "reset [task]",
	Short: "Clear the whole time history of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerReset,
}

var (
	timerWatch   bool
	editMinutes  string
	editNote     string
	timerConfirm bool
)

func init() {
	timerStartCmd.Flags().BoolVarP(&timerWatch, "watch", "w", false, "Keep running and show the counter; Ctrl+C pauses")
	timerResumeCmd.Flags().BoolVarP(&timerWatch, "watch", "w", false, "Keep running and show the counter; Ctrl+C pauses")
	timerEditCmd.Flags().StringVarP(&editMinutes, "minutes", "m", "", "New duration in minutes, or MM:SS")
	timerEditCmd.Flags().StringVarP(&editNote, "note", "n", "", "New session description")
	timerResetCmd.Flags().BoolVarP(&timerConfirm, "force", "f", false, "Do not ask for confirmation")

	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerPauseCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerResumeCmd)
	timerCmd.AddCommand(timerStatusCmd)
	timerCmd.AddCommand(timerSessionsCmd)
	timerCmd.AddCommand(timerEditCmd)
	timerCmd.AddCommand(timerDeleteCmd)
	timerCmd.AddCommand(timerResetCmd)
}

func runTimerStart(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	engine := a.engine(task.ID)
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}
	fmt.Printf("▶ Tracking %s (session %s)\n", task.Title, shortID(engine.SessionID()))

	if !timerWatch {
		return nil
	}
	return watch(a, engine)
}

// watch shows the counter until interrupted, then pauses the session
func watch(a *app, engine *timer.Engine) error {
	a.worker.Start()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Run(ctx, time.Second, func(elapsed time.Duration) {
		fmt.Printf("\r⏱  %s ", export.FormatDuration(model.Minutes(elapsed)))
	})
	fmt.Println()

	if err := engine.Pause(); err != nil {
		return fmt.Errorf("failed to pause timer: %w", err)
	}
	fmt.Printf("⏸ Paused at %s\n", export.FormatDuration(model.Minutes(engine.Elapsed())))
	return nil
}

func runTimerClose(ref string, reset bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(ref)
	if err != nil {
		return err
	}
	engine := a.engine(task.ID)
	running, err := engine.Resume()
	if err != nil {
		return err
	}
	if !running {
		fmt.Printf("No running session on %s\n", task.Title)
		return nil
	}

	sessionID := engine.SessionID()
	if reset {
		err = engine.Stop()
	} else {
		err = engine.Pause()
	}
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	updated, _ := a.store.Task(task.ID)
	for _, r := range updated.TimeTracking {
		if r.ID == sessionID {
			fmt.Printf("■ Session %s closed after %s\n", shortID(r.ID), export.FormatDuration(r.Duration))
		}
	}
	fmt.Printf("  Total on %s: %s\n", updated.Title, formatMinutes(updated.TimeSpent))
	return nil
}

func runTimerStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var tasks []model.Task
	if len(args) == 1 {
		task, err := a.findTask(args[0])
		if err != nil {
			return err
		}
		tasks = []model.Task{task}
	} else {
		for _, t := range a.store.State().Tasks {
			if len(model.OpenSessions(t.TimeTracking)) > 0 {
				tasks = append(tasks, t)
			}
		}
	}

	if len(tasks) == 0 {
		fmt.Println("No timers running.")
		return nil
	}
	for _, t := range tasks {
		engine := a.engine(t.ID)
		running, err := engine.Resume()
		if err != nil {
			return err
		}
		state := "idle"
		if running {
			state = "running"
		}
		fmt.Printf("%s %-30s %s  %s\n", shortID(t.ID), t.Title, state,
			export.FormatDuration(model.Minutes(engine.Elapsed())))
	}
	return nil
}

func runTimerSessions(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	sessions := a.engine(task.ID).Sessions()
	if len(sessions) == 0 {
		fmt.Println("No time records.")
		return nil
	}
	fmt.Printf("\n⏱ %s (%s total)\n", task.Title, formatMinutes(task.TimeSpent))
	printSessions(a, sessions, time.Now())
	fmt.Println()
	return nil
}

func printSessions(a *app, sessions []model.TimeTrackingRecord, now time.Time) {
	fmt.Println(strings.Repeat("─", 60))
	for _, r := range sessions {
		end := "running"
		dur := model.Minutes(now.Sub(r.StartTime))
		if r.EndTime != nil {
			end = r.EndTime.Local().Format("15:04")
			dur = r.Duration
		}
		line := fmt.Sprintf("%s  %s → %-7s  %8s  %s", shortID(r.ID),
			r.StartTime.Local().Format("Jan 2 15:04"), end,
			export.FormatDuration(dur), a.userName(r.UserID, "Unknown User"))
		if r.Description != "" {
			line += "  " + r.Description
		}
		fmt.Println(line)
	}
}

func runTimerEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	rec, err := findSession(task, args[1])
	if err != nil {
		return err
	}

	minutes := rec.Duration
	if cmd.Flags().Changed("minutes") {
		if minutes, err = parseMinutes(editMinutes); err != nil {
			return err
		}
	}
	note := rec.Description
	if cmd.Flags().Changed("note") {
		note = editNote
	}

	if err := a.engine(task.ID).EditSession(rec.ID, note, minutes); err != nil {
		return fmt.Errorf("failed to edit session: %w", err)
	}
	updated, _ := a.store.Task(task.ID)
	fmt.Printf("✓ Session %s is now %s. Total: %s\n", shortID(rec.ID),
		export.FormatDuration(minutes), formatMinutes(updated.TimeSpent))
	return nil
}

func runTimerDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	rec, err := findSession(task, args[1])
	if err != nil {
		return err
	}

	engine := a.engine(task.ID)
	if _, err := engine.Resume(); err != nil {
		return err
	}
	if err := engine.DeleteSession(rec.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Printf("✓ Deleted session %s\n", shortID(rec.ID))
	return nil
}

func runTimerReset(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	if !timerConfirm && !confirm(fmt.Sprintf("Clear all %d session(s) on %q?", len(task.TimeTracking), task.Title)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := a.engine(task.ID).Reset(); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	fmt.Printf("✓ Time history cleared on %s\n", task.Title)
	return nil
}

func findSession(task model.Task, ref string) (model.TimeTrackingRecord, error) {
	return resolve(task.TimeTracking, ref, "session",
		func(r model.TimeTrackingRecord) string { return r.ID }, nil)
}

// parseMinutes accepts "25", "12.5" or "MM:SS"
func parseMinutes(s string) (float64, error) {
	if mm, ss, ok := strings.Cut(s, ":"); ok {
		m, err1 := strconv.Atoi(mm)
		sec, err2 := strconv.Atoi(ss)
		if err1 != nil || err2 != nil || m < 0 || sec < 0 || sec >= 60 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return float64(m) + float64(sec)/60, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return v, nil
}
