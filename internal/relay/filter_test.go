package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		marker  string
		ignored []string
		lines   []string
		want    []bool
	}{
		{"no filters", "", nil, []string{"a", "b"}, []bool{true, true}},
		{"marker latches", "ready", nil, []string{"boot", "server ready", "boot"}, []bool{false, true, true}},
		{"ignore list", "", []string{"tick", ""}, []string{"tick 1", "chat"}, []bool{false, true}},
		{"ignored marker line", "ready", []string{"ready"}, []string{"ready", "x"}, []bool{false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.marker, tt.ignored)
			for i, l := range tt.lines {
				assert.Equal(t, tt.want[i], f.Allow(l), "line %q", l)
			}
		})
	}
}

func TestFilterStarted(t *testing.T) {
	f := NewFilter("go", nil)
	assert.False(t, f.Started())
	f.Allow("let's go")
	assert.True(t, f.Started())
}
