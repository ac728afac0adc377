package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [task]",
	Short: "Export a task with its time history",
	Long: `Write a task and its time tracking history to a CSV or JSON file named
task-<title>-<date>.<ext>. Use --out - to print to stdout.

Examples:
  tasko export 3f2a
  tasko export "Fix login bug" --format json --out ~/reports`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFormat string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format (csv, json)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "Output directory, or - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	format := strings.ToLower(exportFormat)
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported format %q (csv, json)", exportFormat)
	}
	users := a.store.State().Users
	now := time.Now()

	write := func(f *os.File) error {
		if format == "json" {
			return export.WriteJSON(f, task, users, now)
		}
		return export.WriteCSV(f, task, users)
	}

	if exportOut == "-" {
		return write(os.Stdout)
	}

	path := filepath.Join(exportOut, export.FileName(task, format, now))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("✓ Exported %s to %s\n", task.Title, path)
	return nil
}
