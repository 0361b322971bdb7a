//go:build windows

package process

import (
	"os/exec"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

func configureSysProcAttr(cmd *exec.Cmd) {}

func killTree(pid int) error {
	killDescendants(pid)
	p, err := gopsproc.NewProcess(int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		// already gone
		return nil
	}
	return p.Kill()
}
