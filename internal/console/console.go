package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/loykin/servermgr/internal/event"
)

// Handler receives what is typed at the console.
type Handler interface {
	// Command is a line for the server process.
	Command(text string)
	// Special is an @-command other than quit and pause, without the prefix.
	Special(token string)
}

const (
	defaultBacklog = 1024
	pausedStatus   = "PAUSED"
)

// Console is the local display and command line. It implements event.Sink;
// Handle never blocks and drops events when the display falls behind.
type Console struct {
	h      Handler
	in     io.Reader
	out    io.Writer
	window int
	plain  bool
	events chan event.Event
	log    *slog.Logger
}

type Option func(*Console)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Console) {
		c.in = in
		c.out = out
	}
}

// WithWindow sets the number of lines kept on screen.
func WithWindow(n int) Option {
	return func(c *Console) { c.window = n }
}

// WithPlain forces line mode even on a terminal.
func WithPlain(plain bool) Option {
	return func(c *Console) { c.plain = plain }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Console) { c.log = l }
}

func New(h Handler, opts ...Option) *Console {
	c := &Console{
		h:      h,
		in:     os.Stdin,
		out:    os.Stdout,
		window: DefaultWindow,
		events: make(chan event.Event, defaultBacklog),
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Console) Handle(e event.Event) {
	select {
	case c.events <- e:
	default:
		c.log.Debug("display backlog full, line dropped")
	}
}

// Run drives the console until @quit is typed or ctx ends. A terminal gets
// the full screen interface, anything else a plain line mode.
func (c *Console) Run(ctx context.Context) error {
	if !c.plain && isTerminal(c.in) {
		return c.runTUI(ctx)
	}
	return c.runPlain(ctx)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runPlain writes lines as they come and reads commands line by line.
// End of input leaves the display running.
func (c *Console) runPlain(ctx context.Context) error {
	w := NewWindow(c.window)
	inputs := make(chan string)
	go func() {
		defer close(inputs)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case inputs <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.drain(w)
			return nil
		case e := <-c.events:
			if line := e.Line(); w.Append(line) {
				c.println(line)
			}
		case text, ok := <-inputs:
			if !ok {
				inputs = nil
				continue
			}
			kind, arg := Parse(text)
			switch kind {
			case KindQuit:
				c.drain(w)
				return nil
			case KindPause:
				wasPaused := w.Paused()
				held := w.TogglePause()
				if !wasPaused {
					c.println(pausedStatus)
				}
				for _, l := range held {
					c.println(l)
				}
			case KindSpecial:
				c.h.Special(arg)
			case KindCommand:
				c.h.Command(arg)
			}
		}
	}
}

// drain prints events still queued for display.
func (c *Console) drain(w *Window) {
	for {
		select {
		case e := <-c.events:
			if line := e.Line(); w.Append(line) {
				c.println(line)
			}
		default:
			return
		}
	}
}

func (c *Console) println(line string) {
	if _, err := fmt.Fprintln(c.out, line); err != nil {
		c.log.Debug("console write failed", "error", err)
	}
}
