package formatter

import (
	"context"
	"fmt"
	"io"

	"github.com/alexanderramin/planmigrate/internal/service"
	"github.com/charmbracelet/bubbles/progress"
)

// ProgressReporter draws one progress line per phase. It ignores every
// other event.
type ProgressReporter struct {
	service.NoopReporter
	w     io.Writer
	bar   progress.Model
	phase string
}

func NewProgressReporter(w io.Writer) *ProgressReporter {
	return &ProgressReporter{
		w:   w,
		bar: progress.New(progress.WithSolidFill(string(ColorGreen)), progress.WithWidth(30)),
	}
}

func (p *ProgressReporter) Progress(_ context.Context, e service.ProgressEvent) {
	if e.Total <= 0 {
		return
	}
	if p.phase != "" && p.phase != e.Phase {
		fmt.Fprintln(p.w)
	}
	p.phase = e.Phase
	pct := float64(e.Done) / float64(e.Total)
	fmt.Fprintf(p.w, "\r%-24s %s %s", Dim(e.Phase), p.bar.ViewAs(pct), Dim(fmt.Sprintf("%d/%d", e.Done, e.Total)))
}

// Finish ends the current progress line.
func (p *ProgressReporter) Finish() {
	if p.phase == "" {
		return
	}
	fmt.Fprintln(p.w)
	p.phase = ""
}
