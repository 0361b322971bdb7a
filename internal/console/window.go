package console

import "strings"

// DefaultWindow is how many display lines are kept.
const DefaultWindow = 100

// Window is the rolling display buffer. While paused, appended lines are
// held back and replayed on resume. It is not safe for concurrent use.
type Window struct {
	max    int
	lines  []string
	paused bool
	held   []string
}

func NewWindow(max int) *Window {
	if max <= 0 {
		max = DefaultWindow
	}
	return &Window{max: max}
}

// Append adds line and reports whether it became visible.
func (w *Window) Append(line string) bool {
	if w.paused {
		w.held = append(w.held, line)
		return false
	}
	w.push(line)
	return true
}

func (w *Window) push(line string) {
	w.lines = append(w.lines, line)
	if extra := len(w.lines) - w.max; extra > 0 {
		w.lines = append(w.lines[:0], w.lines[extra:]...)
	}
}

// TogglePause flips the paused state. On resume it returns the held lines,
// which are now part of the window.
func (w *Window) TogglePause() []string {
	if !w.paused {
		w.paused = true
		return nil
	}
	w.paused = false
	held := w.held
	w.held = nil
	for _, l := range held {
		w.push(l)
	}
	return held
}

func (w *Window) Paused() bool { return w.paused }

// Lines returns a copy of the visible lines, oldest first.
func (w *Window) Lines() []string { return append([]string(nil), w.lines...) }

func (w *Window) String() string { return strings.Join(w.lines, "\n") }
