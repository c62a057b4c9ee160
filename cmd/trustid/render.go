package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"trustid/internal/domain"
	"trustid/internal/workflow"
)

// stageRenderer prints one line per snapshot with a progress bar and the stage
// title from the plan.
type stageRenderer struct {
	out    io.Writer
	titles map[domain.Stage]string

	live *color.Color
	done *color.Color
	fail *color.Color
	dim  *color.Color
}

const barWidth = 20

func newStageRenderer(out io.Writer, plan []workflow.StagePlan, noColor bool) *stageRenderer {
	r := &stageRenderer{
		out:    out,
		titles: make(map[domain.Stage]string, len(plan)),
		live:   color.New(color.FgCyan),
		done:   color.New(color.FgGreen, color.Bold),
		fail:   color.New(color.FgRed, color.Bold),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.live, r.done, r.fail, r.dim} {
		if noColor {
			c.DisableColor()
		}
	}
	for _, p := range plan {
		r.titles[p.Stage] = p.Title
	}
	return r
}

func (r *stageRenderer) header(handle workflow.CaseHandle) {
	fmt.Fprintf(r.out, "%s %s\n", r.dim.Sprint("Case"), handle)
}

func (r *stageRenderer) render(snap domain.CaseSnapshot) {
	bar := progressBar(snap.ProgressPercent)
	switch snap.Stage {
	case domain.StageCompleted:
		fmt.Fprintf(r.out, "%s %3d%% %s\n", bar, snap.ProgressPercent, r.done.Sprint("Verification complete"))
	case domain.StageFailed:
		fmt.Fprintf(r.out, "%s %3d%% %s %s\n", bar, snap.ProgressPercent, r.fail.Sprint("Verification failed:"), snap.Reason)
	default:
		title := r.titles[snap.Stage]
		if title == "" {
			title = string(snap.Stage)
		}
		fmt.Fprintf(r.out, "%s %3d%% %s\n", bar, snap.ProgressPercent, r.live.Sprint(title))
	}
}

func progressBar(percent int) string {
	percent = max(0, min(percent, workflow.CompletedProgress))
	filled := percent * barWidth / workflow.CompletedProgress
	bar := make([]byte, 0, barWidth+2)
	bar = append(bar, '[')
	for i := range barWidth {
		if i < filled {
			bar = append(bar, '#')
		} else {
			bar = append(bar, '.')
		}
	}
	return string(append(bar, ']'))
}
