package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"influxjson/internal/domain"
	"influxjson/internal/service"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport writes the end-of-run summary.
func printReport(w io.Writer, format string, r *service.Report) error {
	if format == "json" {
		return printJSON(w, r)
	}

	run := r.Run
	fmt.Fprintf(w, "run %s: %s, %d/%d measurements complete, %s rows written in %s\n",
		run.ID, run.Status,
		run.MeasurementsComplete, run.MeasurementsTotal,
		humanize.Comma(int64(run.RowsWritten)),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)
	if run.Error != "" {
		fmt.Fprintf(w, "error: %s\n", run.Error)
	}
	if len(r.Results) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEASUREMENT\tSTATUS\tROWS\tEXPECTED\tPAGES\tFILE\tERROR")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			res.Measurement, res.Status,
			humanize.Comma(int64(res.RowsWritten)),
			humanize.Comma(res.ExpectedRows),
			res.Pages,
			dash(res.OutputPath),
			dash(res.Error),
		)
	}
	return tw.Flush()
}

// printRuns lists ledger runs, newest first.
func printRuns(w io.Writer, format string, runs []domain.ExportRun) error {
	if format == "json" {
		if runs == nil {
			runs = []domain.ExportRun{}
		}
		return printJSON(w, runs)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATABASE\tSTARTED\tSTATUS\tCOMPLETE\tROWS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			run.ID, run.Database,
			humanize.Time(run.StartedAt),
			run.Status,
			run.MeasurementsComplete, run.MeasurementsTotal,
			humanize.Comma(int64(run.RowsWritten)),
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
