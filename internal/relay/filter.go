package relay

import (
	"strings"
	"sync/atomic"
)

// Filter gates relayed text. With a start marker nothing passes until a line
// containing the marker has been seen; the gate then stays open. Lines
// containing any ignored substring are always dropped.
type Filter struct {
	marker  string
	ignored []string
	open    atomic.Bool
}

func NewFilter(marker string, ignored []string) *Filter {
	f := &Filter{marker: marker}
	for _, s := range ignored {
		if s != "" {
			f.ignored = append(f.ignored, s)
		}
	}
	if marker == "" {
		f.open.Store(true)
	}
	return f
}

// Allow reports whether text should be relayed, latching the gate open on the marker.
func (f *Filter) Allow(text string) bool {
	if !f.open.Load() {
		if !strings.Contains(text, f.marker) {
			return false
		}
		f.open.Store(true)
	}
	for _, s := range f.ignored {
		if strings.Contains(text, s) {
			return false
		}
	}
	return true
}

// Started reports whether the start marker has been seen.
func (f *Filter) Started() bool { return f.open.Load() }
