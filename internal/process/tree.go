package process

import (
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// descendants lists every process below pid, deepest first.
func descendants(pid int) []*gopsproc.Process {
	p, err := gopsproc.NewProcess(int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return nil
	}
	children, err := p.Children()
	if err != nil {
		return nil
	}
	var out []*gopsproc.Process
	for _, c := range children {
		out = append(out, descendants(int(c.Pid))...)
		out = append(out, c)
	}
	return out
}

// killDescendants is best effort: processes that already exited are ignored.
func killDescendants(pid int) {
	for _, p := range descendants(pid) {
		_ = p.Kill()
	}
}
