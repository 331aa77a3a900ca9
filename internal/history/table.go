package history

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

const timeLayout = "2006-01-02 15:04:05"

// WriteRuns renders runs as a table.
func WriteRuns(w io.Writer, runs []Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No builds recorded.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Components", "Failed", "Status"})
	for _, run := range runs {
		status := "ok"
		if !run.Succeeded() {
			status = "failed"
		}
		t.AppendRow(table.Row{
			run.ID,
			run.Started.Local().Format(timeLayout),
			run.Finished.Sub(run.Started).Round(time.Second).String(),
			run.Components,
			run.Failures,
			status,
		})
	}
	t.Render()
}

// WriteResults renders the component results of a run as a table.
func WriteResults(w io.Writer, results []Result) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No results recorded.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Stage", "Duration", "Status", "Error"})
	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed"
			failed++
		}
		t.AppendRow(table.Row{r.Component, r.Stage, r.Duration.Round(time.Millisecond).String(), status, r.Error})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d failed", failed), ""})
	t.Render()
}
