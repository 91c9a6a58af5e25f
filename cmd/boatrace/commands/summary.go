package commands

import (
	"boatrace-results/internal/collect"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderSummary(w io.Writer, result collect.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Race results " + result.Date)
	t.AppendHeader(table.Row{"Code", "Venue", "Races", "Fetched", "Collected", "Skipped"})

	var total collect.VenueSummary
	for _, venue := range result.Venues {
		t.AppendRow(table.Row{
			venue.Venue.Code,
			venue.Venue.Name,
			venue.Listed,
			venue.Fetched,
			venue.Collected,
			venue.Skipped,
		})
		total.Listed += venue.Listed
		total.Fetched += venue.Fetched
		total.Collected += venue.Collected
		total.Skipped += venue.Skipped
	}

	t.AppendFooter(table.Row{"", "Total", total.Listed, total.Fetched, total.Collected, total.Skipped})
	t.Render()
}
