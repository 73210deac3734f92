package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/emergent-company/epf-eval/internal/orchestration"
	"github.com/emergent-company/epf-eval/internal/reporting"
	"github.com/emergent-company/epf-eval/internal/spinner"
)

const progressErrorWidth = 60

// progressPrinter prints one row per finished pair. On a terminal a spinner
// below the rows shows how many pairs are done. Calls arrive serialized from
// the runner.
type progressPrinter struct {
	w           io.Writer
	total       int
	done        int
	showRepeats bool
	spin        *spinner.Spinner
}

func newProgressPrinter(w io.Writer, total int, showRepeats bool) *progressPrinter {
	p := &progressPrinter{w: w, total: total, showRepeats: showRepeats}
	if isTerminal(w) {
		p.spin = spinner.Start(w, p.status())
	}
	return p
}

func (p *progressPrinter) status() string {
	return fmt.Sprintf("%d/%d evals done", p.done, p.total)
}

func (p *progressPrinter) listen(event orchestration.ProgressEvent) {
	if event.EventType != orchestration.EventPairCompleted {
		return
	}
	p.done++
	row := progressRow(event, p.showRepeats)
	if p.spin == nil {
		fmt.Fprintln(p.w, row) //nolint:errcheck
		return
	}
	p.spin.Println(row)
	p.spin.Set(p.status())
}

func (p *progressPrinter) stop() {
	if p.spin != nil {
		p.spin.Stop()
	}
}

// progressRow renders "  [provider  ] Name... 67%" or the error variant.
func progressRow(event orchestration.ProgressEvent, showRepeat bool) string {
	name := event.ScenarioName
	if showRepeat {
		name = fmt.Sprintf("%s #%d", name, event.Repeat)
	}
	outcome := reporting.Percent(event.Rate)
	if event.Error != "" {
		outcome = "ERROR: " + reporting.Truncate(event.Error, progressErrorWidth)
	}
	return fmt.Sprintf("  [%s] %s... %s", reporting.PadRight(string(event.Provider), 10), name, outcome)
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
