package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/coopco/deskclock/internal/schedule"
)

// RenderSchedule lists the tasks grouped by date. Tasks already processed or
// in the past are struck through; the next one is highlighted.
func RenderSchedule(sched schedule.Schedule, lastProcessed int64, now time.Time) string {
	var b strings.Builder
	pending := 0
	for _, t := range sched.Tasks {
		if t.Timestamp > lastProcessed && t.Time().After(now) {
			pending++
		}
	}
	b.WriteString(Badge(sched.Active, pending))
	b.WriteString("\n")

	if len(sched.Tasks) == 0 {
		b.WriteString(listStyle.Render("no tasks scheduled"))
		b.WriteString("\n")
		return b.String()
	}

	if sched.Randomized {
		b.WriteString(listStyle.Render("randomized ±5 min"))
		b.WriteString("\n")
	}

	byDate := make(map[string][]schedule.Task)
	for _, t := range sched.Tasks {
		byDate[t.DateStr] = append(byDate[t.DateStr], t)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	nextMarked := false
	for _, d := range dates {
		b.WriteString(dateStyle.Render(d))
		b.WriteString("\n")
		for _, t := range byDate[d] {
			line := fmt.Sprintf("%-3s %s  %s", t.Action, t.Time().Format("15:04"),
				humanize.RelTime(t.Time(), now, "ago", "from now"))
			switch {
			case t.Timestamp <= lastProcessed || !t.Time().After(now):
				line = doneStyle.Render(line)
			case !nextMarked:
				line = nextStyle.Render(line + "  ← next")
				nextMarked = true
			}
			b.WriteString(listStyle.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}
