package console

import "strings"

// Kind classifies one line typed at the console.
type Kind int

const (
	KindEmpty Kind = iota
	// KindCommand is forwarded to the server process.
	KindCommand
	// KindSpecial is an @-command handled by the application (start, stop, ...).
	KindSpecial
	KindQuit
	KindPause
)

// SpecialPrefix marks a console command that is not sent to the process.
const SpecialPrefix = "@"

// Parse classifies input and returns the text to act on.
func Parse(input string) (Kind, string) {
	if input == "" {
		return KindEmpty, ""
	}
	if !strings.HasPrefix(input, SpecialPrefix) {
		return KindCommand, input
	}
	token := strings.TrimPrefix(input, SpecialPrefix)
	switch {
	case strings.HasPrefix(token, "quit"):
		return KindQuit, token
	case strings.HasPrefix(token, "pause"):
		return KindPause, token
	default:
		return KindSpecial, token
	}
}
