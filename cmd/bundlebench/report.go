package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/meigma/bundlebench"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// writeBuildReport prints one row per built mode.
func writeBuildReport(w io.Writer, r *bundlebench.BuildReport) error {
	fmt.Fprintf(w, "Assigned %d textures and %d groups to bundle\n", r.Textures, r.Groups)
	tw := newTable(w)
	fmt.Fprintln(tw, "MODE\tSIZE\tENTRIES\tDURATION\tDIGEST\tSTATUS")
	for _, a := range r.Artifacts {
		status, dgst := "ok", "-"
		if a.Err != nil {
			status = a.Err.Error()
		}
		if a.Digest != "" {
			dgst = a.Digest.Encoded()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			a.Mode, a.Size, a.Stats.Entries, a.Duration.Round(time.Millisecond), dgst, status)
	}
	return tw.Flush()
}

// writeResults prints benchmark results either as a table or as a JSON
// array.
func writeResults(w io.Writer, results []bundlebench.Result, asJSON bool) error {
	if asJSON {
		if results == nil {
			results = []bundlebench.Result{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "MODE\tPRIORITY\tGROUPS\tAWAKE\tOPEN\tTOTAL\tFRAMES\tMAX/FRAME\tSIZE\tRATIO\tFAILED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%dms\t%dms\t%d\t%d\t%d\t%.3f\t%d\n",
			r.Mode, r.Priority, r.Groups, r.Awake,
			r.OpenLatency.Milliseconds(), r.TotalLatency.Milliseconds(),
			r.Frames, r.MaxDelta, r.FileSize, r.Ratio, r.FailedLoads)
	}
	return tw.Flush()
}
