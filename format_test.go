package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/followgc/followgc/internal/engine"
)

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "25")
		assert.Contains(t, result, "2020")
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"LOGIN", "OUTCOME"}
	rows := [][]string{
		{"octocat", "applied"},
		{"x", "skipped"},
	}

	printTable(&buf, headers, rows)

	out := buf.String()
	assert.Contains(t, out, "LOGIN")
	assert.Contains(t, out, "octocat  applied")
	assert.Contains(t, out, "x        skipped")
}

func TestPrintReportSummarizesOutcomes(t *testing.T) {
	// printReport writes the table to stdout and the tally to stderr via
	// Statusf; quiet mode silences the tally without panicking.
	cc := &CLIContext{Flags: rootFlags{Quiet: true}}

	printReport(cc, &engine.Report{
		Action:  "unfollow",
		Total:   1,
		Applied: 1,
		Details: []engine.TargetResult{{Username: "a", Outcome: engine.OutcomeApplied}},
	})
}
