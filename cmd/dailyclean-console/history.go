package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/doughall/dailyclean/console/internal/history"
)

// printHistory writes the most recent journal entries as a table.
func printHistory(j *history.Journal, limit int, out io.Writer) error {
	entries, err := j.Recent(limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "WHEN", "OPERATION", "CRON START", "CRON STOP", "MS", "RESULT")

	for _, e := range entries {
		result := "ok"
		if !e.OK() {
			result = e.Error
		}
		t.Row(
			strconv.FormatUint(e.ID, 10),
			e.At.Local().Format(time.DateTime),
			e.Operation,
			e.CronStart,
			e.CronStop,
			strconv.FormatInt(e.DurationMs, 10),
			result,
		)
	}

	fmt.Fprintln(out, t.Render())
	return nil
}
