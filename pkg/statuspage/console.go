package statuspage

import (
	"fmt"
	"io"

	"github.com/user/mayday"
)

// Console renders outcomes as lines on a writer, for command-line use.
type Console struct {
	Out io.Writer
}

// Render prints one line per outcome.
func (c Console) Render(o mayday.Outcome) {
	switch o.Kind {
	case mayday.OutcomePending:
		fmt.Fprintln(c.Out, "Sending crash report...")
	case mayday.OutcomeSuccess:
		fmt.Fprintf(c.Out, "Crash report successfully submitted. Report ID: %s.\n", o.ReportID)
	case mayday.OutcomeFailure:
		fmt.Fprintf(c.Out, "Failed to submit crash report (%s).\n", o.Reason)
	}
}
