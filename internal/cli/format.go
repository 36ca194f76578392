package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/ingest"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	failMark = color.New(color.FgRed).Sprint("✗")
)

func printPreview(w io.Writer, fileName string, p *ingest.Preview) {
	fmt.Fprintf(w, "%s  %s data rows\n", color.New(color.Bold).Sprint(fileName), humanize.Comma(int64(p.TotalRows)))
	fmt.Fprintln(w)
	for i, h := range p.Headers {
		fmt.Fprintf(w, "  %s %-24s %s\n",
			color.New(color.FgCyan).Sprintf("[%d]", i),
			h.Name,
			color.New(color.FgHiBlack).Sprint(strings.Join(h.Sample, ", ")))
	}
}

func printImportResult(w io.Writer, res *domain.ImportResult) {
	mark := okMark
	if res.ErrorCount() > 0 {
		mark = warnMark
	}
	fmt.Fprintf(w, "%s %s rows read in %s\n", mark, humanize.Comma(int64(res.TotalRows)), res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  inserted:   %s\n", color.New(color.FgGreen).Sprint(humanize.Comma(int64(res.Inserted))))
	fmt.Fprintf(w, "  duplicates: %s\n", humanize.Comma(int64(res.Duplicates)))
	fmt.Fprintf(w, "  rejected:   %s\n", color.New(color.FgYellow).Sprint(humanize.Comma(int64(len(res.Rejected)))))

	const maxShown = 20
	for i, r := range res.Rejected {
		if i == maxShown {
			fmt.Fprintf(w, "    ... and %s more\n", humanize.Comma(int64(len(res.Rejected)-maxShown)))
			break
		}
		fmt.Fprintf(w, "    row %d: %s\n", r.Row, r.Reason)
	}
	for _, b := range res.Errors {
		fmt.Fprintf(w, "  %s rows %d-%d not written: %s\n", failMark, b.FirstRow, b.LastRow, b.Reason)
	}
}

func printAssignment(w io.Writer, a *domain.Assignment, voterCount int) {
	fmt.Fprintf(w, "%s %s -> %s / %s / %s / %s (%s voters)\n", okMark,
		color.New(color.Bold).Sprint(a.UserID),
		a.State, a.LGA, a.Ward, a.PollingUnit,
		humanize.Comma(int64(voterCount)))
}

func printDisplaced(w io.Writer, displaced []*domain.Assignment) {
	for _, d := range displaced {
		fmt.Fprintf(w, "  %s displaced %s from %s, assigned %s\n", warnMark,
			d.UserID, d.PollingUnit, humanize.Time(d.AssignedAt))
	}
}

func printVolunteers(w io.Writer, items []*domain.VolunteerSummary, total int) {
	for _, v := range items {
		status := color.New(color.FgGreen).Sprint("active  ")
		if !v.IsActive {
			status = color.New(color.FgHiBlack).Sprint("inactive")
		}
		last := "never"
		if v.LastCallAt != nil {
			last = humanize.Time(*v.LastCallAt)
		}
		fmt.Fprintf(w, "%s %-20s %-30s %s/%s called, %s confirmed, last call %s\n",
			status, v.UserID, v.PollingUnit,
			humanize.Comma(int64(v.CallsMade)), humanize.Comma(int64(v.VoterCount)),
			humanize.Comma(int64(v.ConfirmedCount)), last)
	}
	fmt.Fprintf(w, "%s volunteers\n", humanize.Comma(int64(total)))
}
