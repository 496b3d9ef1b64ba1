package main

import (
	"fmt"
	"io"

	"github.com/ChicagoDave/casemap/internal/server"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/stats"
	"github.com/ChicagoDave/casemap/pkg/validation"
)

func printValidationReport(w io.Writer, r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			printResult(w, e)
			if e.ConflictWith != "" {
				fmt.Fprintf(w, "    conflicts with: %s\n", e.ConflictWith)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "WARNINGS (%d):\n", len(r.Warnings))
		for _, e := range r.Warnings {
			printResult(w, e)
		}
		fmt.Fprintln(w)
	}

	if len(r.Info) > 0 {
		fmt.Fprintf(w, "INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			if i.Region != "" {
				fmt.Fprintf(w, "  [%s] %s: %s\n", i.Level, i.Region, i.Message)
			} else {
				fmt.Fprintf(w, "  [%s] %s\n", i.Level, i.Message)
			}
		}
		fmt.Fprintln(w)
	}

	if r.Valid {
		fmt.Fprintf(w, "Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Fprintf(w, "Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(w io.Writer, e validation.Result) {
	if e.Region != "" {
		fmt.Fprintf(w, "  [%s] %s: %s\n", e.Level, e.Region, e.Message)
	} else {
		fmt.Fprintf(w, "  [%s] %s\n", e.Level, e.Message)
	}
	if e.SpecPath != "" {
		fmt.Fprintf(w, "    -> %s = %v\n", e.SpecPath, e.ActualValue)
	}
	if e.Expected != "" {
		fmt.Fprintf(w, "    expected: %s\n", e.Expected)
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(w, "    * %s\n", s)
	}
}

// printSummary prints the chart totals and per-region point states at day.
func printSummary(w io.Writer, snap *server.Snapshot, filter string, day float64) {
	chart := stats.NewChart(snap.Inputs.Confirmed, snap.Inputs.Deaths, filter)
	name := filter
	if name == "" {
		name = "World"
	}

	fmt.Fprintf(w, "Summary: %s (day %g)\n", name, day)
	fmt.Fprintln(w, "==========================")
	fmt.Fprintln(w)
	if n := len(chart.Confirmed); n > 0 {
		i := clampDay(day, n)
		if i < len(chart.Dates) {
			fmt.Fprintf(w, "  Date:       %s\n", chart.Dates[i].Format("2006-01-02"))
		}
		fmt.Fprintf(w, "  Confirmed:  %s\n", formatCount(chart.Confirmed[i]))
		if i < len(chart.Deaths) {
			fmt.Fprintf(w, "  Deaths:     %s\n", formatCount(chart.Deaths[i]))
		}
		if g := chart.Growth[i]; g != nil {
			fmt.Fprintf(w, "  Growth:     %.3f\n", *g)
		}
	}
	d := snap.Result.Diagnostics
	fmt.Fprintf(w, "  Points:     %d (decimation %d)\n", d.Points, snap.Cloud.Metadata.Decimation)
	if d.DroppedDead+d.DroppedRecovered > 0 {
		fmt.Fprintf(w, "  Dropped:    %d dead, %d recovered units\n", d.DroppedDead, d.DroppedRecovered)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-32s %8s %8s %8s %8s %8s %8s\n",
		"Region", "Points", "NotYet", "Active", "Recov", "Dead", "Extinct")
	fmt.Fprintf(w, "%-32s %8s %8s %8s %8s %8s %8s\n",
		"--------------------------------", "--------", "--------", "--------", "--------", "--------", "--------")

	for _, rr := range snap.Result.Regions {
		if filter != "" && !rr.Key.Matches(filter) {
			continue
		}
		c := snap.Result.Buffers.CountRange(rr.Offset, rr.Offset+len(rr.Events), day, snap.Settings)
		fmt.Fprintf(w, "%-32s %8d %8d %8d %8d %8d %8d\n",
			label(rr.Key), len(rr.Events), c.NotYet, c.Active, c.Recovered, c.Dead, c.Extinct)
	}
}

func label(k region.Key) string {
	r := []rune(k.String())
	if len(r) > 32 {
		return string(r[:29]) + "..."
	}
	return string(r)
}

func clampDay(day float64, n int) int {
	i := int(day)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func formatCount(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	if v >= 10_000 {
		return fmt.Sprintf("%.1fK", v/1_000)
	}
	return fmt.Sprintf("%.0f", v)
}
