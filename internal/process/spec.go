package process

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Transport selects how the child process is driven.
type Transport string

const (
	// TransportPipe redirects stdin, stdout and stderr through OS pipes.
	TransportPipe Transport = "pipe"
	// TransportPTY runs the child inside a pseudo-terminal; stdout and stderr are combined.
	TransportPTY Transport = "pty"
)

// DefaultWarmUp is how long a pty handle waits after spawn before it starts reading.
// Reading a freshly spawned pty too early can garble the stream.
const DefaultWarmUp = time.Second

// TransportFor maps the use-pty setting to a Transport.
func TransportFor(usePTY bool) Transport {
	if usePTY {
		return TransportPTY
	}
	return TransportPipe
}

// Spec describes the child process. It is created once at startup and never mutated.
type Spec struct {
	Path      string    `json:"path"`
	WorkDir   string    `json:"work_dir"`
	Args      []string  `json:"args"`
	Transport Transport `json:"transport"`
	// WarmUp overrides DefaultWarmUp for pty handles; zero means default.
	WarmUp time.Duration `json:"-"`
}

// Validate checks that the executable and the working directory exist right now.
func (s Spec) Validate() error {
	fi, err := os.Stat(s.Path)
	if err != nil || fi.IsDir() {
		return fmt.Errorf("%w: executable %q", ErrBadPath, s.Path)
	}
	fi, err = os.Stat(s.WorkDir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: working directory %q", ErrBadPath, s.WorkDir)
	}
	return nil
}

func (s Spec) warmUp() time.Duration {
	if s.WarmUp > 0 {
		return s.WarmUp
	}
	return DefaultWarmUp
}

func (s Spec) command() *exec.Cmd {
	// #nosec G204 -- the executable is the operator-supplied server binary
	cmd := exec.Command(s.Path, s.Args...)
	cmd.Dir = s.WorkDir
	return cmd
}
