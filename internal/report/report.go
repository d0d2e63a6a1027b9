// Package report renders validation results for people.
package report

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/rtm0/obscheck/internal/validate"
)

// Printer writes per-file verdicts and a summary line.
type Printer struct {
	w     io.Writer
	quiet bool
}

// New creates a Printer writing to w. A quiet printer writes nothing.
func New(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, quiet: quiet}
}

// Result prints one file's verdict followed by its error messages.
func (p *Printer) Result(res validate.Result) {
	if p.quiet {
		return
	}
	switch {
	case res.Err != nil:
		fmt.Fprintf(p.w, "%s %s: %v\n", pterm.Red("✗"), res.Path, res.Err)
	case res.Passed():
		fmt.Fprintf(p.w, "%s %s pass\n", pterm.Green("✓"), res.Path)
	default:
		suffix := ""
		if res.Cached {
			suffix = pterm.Gray(" (cached)")
		}
		fmt.Fprintf(p.w, "%s %s%s\n", pterm.Red("✗"), res.Path, suffix)
		for _, r := range res.Records {
			fmt.Fprintf(p.w, "  %s %s\n", pterm.Yellow(r.Check+":"), r.Message)
		}
	}
}

// Results prints every result and the summary.
func (p *Printer) Results(results []validate.Result) {
	for _, res := range results {
		p.Result(res)
	}
	p.Summary(results)
}

// Summary prints how many files passed.
func (p *Printer) Summary(results []validate.Result) {
	if p.quiet || len(results) == 0 {
		return
	}
	failed := validate.Failed(results)
	passed := len(results) - failed
	if failed == 0 {
		fmt.Fprintf(p.w, "%s\n", pterm.Green(fmt.Sprintf("%d/%d files pass", passed, len(results))))
		return
	}
	fmt.Fprintf(p.w, "%s\n", pterm.Red(fmt.Sprintf("%d/%d files pass, %d failed", passed, len(results), failed)))
}
