package console

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loykin/servermgr/internal/event"
)

var (
	statusStyle = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	levelStyles = map[event.Level]lipgloss.Style{
		event.LevelTrace:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		event.LevelDebug:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		event.LevelWarn:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		event.LevelError:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		event.LevelCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

func render(e event.Event) string {
	if st, ok := levelStyles[e.Level]; ok {
		return st.Render(e.Line())
	}
	return e.Line()
}

type eventMsg event.Event

type model struct {
	h      Handler
	window *Window
	view   viewport.Model
	input  textinput.Model
}

func newModel(h Handler, window int) model {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "command, or @start @stop @pause @quit"
	in.Focus()
	return model{
		h:      h,
		window: NewWindow(window),
		view:   viewport.New(80, 20),
		input:  in,
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-2, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.refresh()
		return m, nil

	case eventMsg:
		if m.window.Append(render(event.Event(msg))) {
			m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			return m.submit(text)
		case tea.KeyPgUp:
			m.view.HalfPageUp()
			return m, nil
		case tea.KeyPgDown:
			m.view.HalfPageDown()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit(text string) (tea.Model, tea.Cmd) {
	kind, arg := Parse(text)
	switch kind {
	case KindQuit:
		return m, tea.Quit
	case KindPause:
		m.window.TogglePause()
		m.refresh()
		return m, nil
	case KindSpecial:
		return m, func() tea.Msg { m.h.Special(arg); return nil }
	case KindCommand:
		return m, func() tea.Msg { m.h.Command(arg); return nil }
	}
	return m, nil
}

// refresh shows the window and follows the tail.
func (m *model) refresh() {
	m.view.SetContent(m.window.String())
	m.view.GotoBottom()
}

func (m model) View() string {
	status := ""
	if m.window.Paused() {
		status = statusStyle.Render(pausedStatus)
	}
	return m.view.View() + "\n" + status + "\n" + m.input.View()
}

func (c *Console) runTUI(ctx context.Context) error {
	p := tea.NewProgram(newModel(c.h, c.window),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
		tea.WithAltScreen(),
	)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case e := <-c.events:
				p.Send(eventMsg(e))
			case <-ctx.Done():
				p.Quit()
				return
			case <-done:
				return
			}
		}
	}()
	_, err := p.Run()
	return err
}
