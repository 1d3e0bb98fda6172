package report

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText writes a plain-text rendition of r, suited to a terminal.
func WriteText(w io.Writer, r *Report) error {
	res := r.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Report %s (computed %s)\n\n", r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(tw, "One-time user %%\t%.2f\n", res.OneTimeUserPct)
	fmt.Fprintf(tw, "Combo AOV\t%s\n", res.ComboAOV)
	fmt.Fprintf(tw, "Regular AOV\t%s\n", res.RegularAOV)
	fmt.Fprintf(tw, "Expired stock %%\t%.2f\n", res.ExpiredPct)

	fmt.Fprintln(tw, "\nTop expired products")
	if len(res.TopExpired) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for i, p := range res.TopExpired {
		fmt.Fprintf(tw, "  %d. %s\t%s\n", i+1, p.ProductID, formatQuantity(p.Quantity))
	}

	if len(r.Flags) > 0 {
		fmt.Fprintln(tw, "\nRules fired")
		for _, f := range r.Flags {
			fmt.Fprintf(tw, "  %s\n", f.Message)
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(tw, "\nNotes")
		for _, h := range r.Diagnostics {
			fmt.Fprintf(tw, "  [%s] %s\n", h.Level, h.Title)
		}
	}

	if counts := r.IssueCounts(); len(counts) > 0 {
		fmt.Fprintln(tw, "\nUnreadable cells")
		for _, ic := range counts {
			fmt.Fprintf(tw, "  %s.%s\t%d\n", ic.Table, ic.Field, ic.Count)
		}
	}
	return tw.Flush()
}
