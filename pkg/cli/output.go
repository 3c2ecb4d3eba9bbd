package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

var (
	headerColor  = color.New(color.Bold)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	noticeColor  = color.New(color.FgYellow)
)

// printItems writes the fetched items as a table
func printItems(w io.Writer, result *model.FetchResult) {
	label := result.Profile
	if result.Title != "" && result.Title != label {
		label += " (" + result.Title + ")"
	}
	_, _ = headerColor.Fprintf(w, "Found %d video(s) for %s\n", len(result.Items), label)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tTITLE\tURL")
	for _, item := range result.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ID, truncate(item.DisplayTitle(), 60), item.SourceURL)
	}
	_ = tw.Flush()
}

// progressPrinter renders progress events on a single line
type progressPrinter struct {
	w io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Update is a progress sink for Session.DownloadAll
func (p *progressPrinter) Update(ev model.ProgressEvent) {
	_, _ = fmt.Fprintf(p.w, "\rDownloading %d / %d (%d%%)", ev.Completed, ev.Total, ev.Percent())
	if ev.Done() {
		_, _ = fmt.Fprintln(p.w)
	}
}

// printSummary reports the outcome of a batch. Failed items get their own lines.
func printSummary(w io.Writer, result *model.BatchResult) {
	for _, f := range result.Failures {
		_, _ = failureColor.Fprintf(w, "✗ #%d %s: %v\n", f.Position, f.Item.DisplayTitle(), f.Err)
	}

	switch {
	case result.Canceled:
		_, _ = noticeColor.Fprintf(w, "Canceled after %d of %d video(s)\n", result.Dispatched, result.Total)
	case result.Total == 0:
		_, _ = noticeColor.Fprintln(w, "No video to download")
	default:
		_, _ = successColor.Fprintf(w, "All downloads triggered: %d succeeded, %d failed (%s)\n",
			result.Succeeded(), len(result.Failures), result.Duration().Round(time.Millisecond))
	}
}

// printFetchStats reports what the background fetcher saved
func printFetchStats(w io.Writer, dir string, stats model.FetchStats) {
	if stats.Failed > 0 {
		_, _ = failureColor.Fprintf(w, "%d file(s) could not be saved\n", stats.Failed)
	}
	_, _ = successColor.Fprintf(w, "%d file(s) saved to %s\n", stats.Completed, dir)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
