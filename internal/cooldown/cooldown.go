package cooldown

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/loykin/servermgr/internal/metrics"
)

var ErrNoPattern = errors.New("empty command start pattern")

// Config is the custom command table.
type Config struct {
	// Cooldown is the window after a trigger during which no trigger is honoured.
	// Zero or less disables the window.
	Cooldown time.Duration
	// Pattern marks where a command token starts in an output line.
	Pattern  string
	Commands map[string]string
}

// Matcher maps trigger tokens found in output lines to response commands,
// with one cooldown window shared by all tokens.
// The zero value and the value returned by Inert never match.
type Matcher struct {
	re       *regexp.Regexp
	commands map[string]string
	window   time.Duration

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

// Inert returns a matcher that never matches.
func Inert() *Matcher { return &Matcher{} }

// New compiles cfg. On error the returned matcher is inert, never nil.
func New(cfg Config) (*Matcher, error) {
	if cfg.Pattern == "" {
		return Inert(), ErrNoPattern
	}
	// each line is matched on its own, ^ and $ bind to line boundaries
	re, err := regexp.Compile("(?m)" + cfg.Pattern)
	if err != nil {
		return Inert(), fmt.Errorf("compile command start pattern: %w", err)
	}
	cmds := make(map[string]string, len(cfg.Commands))
	for k, v := range cfg.Commands {
		cmds[k] = v
	}
	return &Matcher{re: re, commands: cmds, window: cfg.Cooldown}, nil
}

// Enabled reports whether the matcher was configured successfully.
func (m *Matcher) Enabled() bool { return m != nil && m.re != nil }

// Active reports whether the cooldown window is open.
func (m *Matcher) Active() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Process returns the response mapped to the token following the first
// pattern match in line. A hit starts the cooldown window.
func (m *Matcher) Process(line string) (string, bool) {
	if !m.Enabled() {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return "", false
	}

	loc := m.re.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	token := line[loc[1]:]
	if i := strings.IndexFunc(token, unicode.IsSpace); i >= 0 {
		token = token[:i]
	}
	resp, ok := m.commands[token]
	if !ok {
		return "", false
	}
	m.start()
	metrics.IncTrigger()
	return resp, true
}

// start opens the window; m.mu must be held.
func (m *Matcher) start() {
	if m.window <= 0 {
		return
	}
	m.active = true
	m.timer = time.AfterFunc(m.window, func() {
		m.mu.Lock()
		m.active = false
		m.timer = nil
		m.mu.Unlock()
	})
}

// Stop cancels a pending cooldown timer and ends the window.
func (m *Matcher) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.active = false
}
