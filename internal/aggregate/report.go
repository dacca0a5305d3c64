package aggregate

import (
	"fmt"
	"io"
	"text/tabwriter"
)

const (
	DefaultGroupHeader = "DEPARTMENT NUMBER"
	DefaultTotalHeader = "TOTAL SALARY"
)

// Report renders a Result as an aligned two column table.
type Report struct {
	GroupHeader string
	TotalHeader string
}

// WriteReport writes r with the default headers.
func WriteReport(w io.Writer, r *Result) error {
	return Report{}.Write(w, r)
}

func (rep Report) Write(w io.Writer, r *Result) error {
	groupHeader, totalHeader := rep.GroupHeader, rep.TotalHeader
	if groupHeader == "" {
		groupHeader = DefaultGroupHeader
	}
	if totalHeader == "" {
		totalHeader = DefaultTotalHeader
	}

	tw := tabwriter.NewWriter(w, 0, 8, 4, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\n", groupHeader, totalHeader); err != nil {
		return err
	}
	for _, g := range r.Groups {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", g.Key, g.Total.String()); err != nil {
			return err
		}
	}
	return tw.Flush()
}
