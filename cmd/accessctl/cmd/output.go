package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hospitalhub/accessgate/internal/model"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// codeTable prints codes with their state at now.
func codeTable(w io.Writer, codes []model.AccessCode, now time.Time) {
	if len(codes) == 0 {
		fmt.Fprintln(w, "No access codes found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tSTATUS\tEXPIRES\tUSES\tCREATED BY\tNOTE")
	for _, c := range codes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.Code, codeStatus(c, now), remaining(c.ExpiresAt, now), c.UsageCount, c.CreatedBy, c.Note)
	}
	tw.Flush()
}

func codeDetail(w io.Writer, c *model.AccessCode, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Code:\t%s\n", c.Code)
	fmt.Fprintf(tw, "ID:\t%s\n", c.ID)
	fmt.Fprintf(tw, "Expires:\t%s (%s)\n", c.ExpiresAt.Local().Format(time.RFC3339), remaining(c.ExpiresAt, now))
	if c.Note != "" {
		fmt.Fprintf(tw, "Note:\t%s\n", c.Note)
	}
	tw.Flush()
}

func codeStatus(c model.AccessCode, now time.Time) string {
	switch {
	case !c.IsActive:
		return "inactive"
	case c.IsExpiredAt(now):
		return "expired"
	default:
		return "valid"
	}
}

func remaining(expiresAt, now time.Time) string {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return "-"
	}
	if d < time.Minute {
		return "<1m left"
	}
	return fmt.Sprintf("%dm left", int(d.Minutes()))
}
