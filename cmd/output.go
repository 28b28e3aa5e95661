package cmd

import (
	"fmt"
	"io"
	"sort"

	"schema-manager/core/reconcile"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func statusLabel(s reconcile.Status) string {
	label := fmt.Sprintf("%-12s", s)
	switch s {
	case reconcile.StatusCreated, reconcile.StatusPatched:
		return green(label)
	case reconcile.StatusWouldCreate, reconcile.StatusWouldPatch:
		return yellow(label)
	case reconcile.StatusFailed:
		return red(label)
	default:
		return faint(label)
	}
}

// printReport writes one line per collection followed by its changes and a summary.
func printReport(w io.Writer, report *reconcile.Report) {
	for _, res := range report.Results {
		fmt.Fprintf(w, "%s %s\n", statusLabel(res.Status), cyan(res.Collection))
		for _, change := range res.Changes {
			fmt.Fprintf(w, "    %s\n", change.String())
		}
		if res.Error != "" {
			if res.StatusCode != 0 {
				fmt.Fprintf(w, "    %s %s\n", red(fmt.Sprintf("[%d]", res.StatusCode)), res.Error)
			} else {
				fmt.Fprintf(w, "    %s\n", red(res.Error))
			}
		}
	}

	summary := report.Summary()
	statuses := make([]string, 0, len(summary))
	for s := range summary {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)

	fmt.Fprintf(w, "\n%s run %s:", report.Kind, faint(report.RunID))
	for _, s := range statuses {
		fmt.Fprintf(w, " %s=%d", s, summary[reconcile.Status(s)])
	}
	fmt.Fprintln(w)
}

// pending reports whether a dry-run report would write anything.
func pending(report *reconcile.Report) bool {
	for _, res := range report.Results {
		if res.Status == reconcile.StatusWouldCreate || res.Status == reconcile.StatusWouldPatch {
			return true
		}
	}
	return false
}

// confirm asks a yes/no question; assumeYes skips the prompt.
func confirm(message string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func failedErr(report *reconcile.Report) error {
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d collections failed", n, len(report.Results))
	}
	return nil
}
