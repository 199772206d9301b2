package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Badge renders the two-state indicator. pending is the number of tasks
// still scheduled and is shown as a dot count while active.
func Badge(active bool, pending int) string {
	if !active {
		return inactiveBadgeStyle.Render("○ inactive")
	}
	label := "● active"
	if pending > 0 {
		label = fmt.Sprintf("● active (%d)", pending)
	}
	return activeBadgeStyle.Render(label)
}

// TerminalIndicator prints the badge whenever the state changes.
type TerminalIndicator struct {
	w    io.Writer
	now  func() time.Time
	mu   sync.Mutex
	seen bool
	last bool
	n    int
}

func NewTerminalIndicator(w io.Writer) *TerminalIndicator {
	return &TerminalIndicator{w: w, now: time.Now}
}

func (t *TerminalIndicator) Show(active bool, pending int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen && t.last == active && t.n == pending {
		return
	}
	t.seen, t.last, t.n = true, active, pending
	fmt.Fprintf(t.w, "%s  %s\n", t.now().Format("15:04:05"), Badge(active, pending))
}
