package relay

import (
	"strings"

	"github.com/muesli/termenv"

	"github.com/loykin/servermgr/internal/event"
)

const (
	// Ceiling bounds the opening fence plus content of one batch.
	Ceiling = 396

	fenceOpen  = "```ansi\n"
	fenceClose = "```\n"

	// maxPart is the longest decorated piece that fits alone in a fresh block.
	maxPart = Ceiling - 1 - len(fenceOpen)
)

func colorFor(level event.Level) termenv.Color {
	switch level {
	case event.LevelTrace, event.LevelDebug:
		return termenv.ANSIBlack
	case event.LevelWarn:
		return termenv.ANSIYellow
	case event.LevelError, event.LevelCritical:
		return termenv.ANSIRed
	default:
		return nil
	}
}

func decorate(text string, level event.Level) string {
	color := colorFor(level)
	if color == nil {
		return text
	}
	return termenv.ANSI.String(text).Foreground(color).String()
}

// Decorate renders e with the ANSI colour of its level.
func Decorate(e event.Event) string { return decorate(e.Line(), e.Level) }

// pieces returns the decorated line of e, split when it cannot fit one block.
func pieces(e event.Event) []string {
	d := Decorate(e)
	if len(d) <= maxPart {
		return []string{d}
	}
	overhead := len(d) - len(e.Line())
	var out []string
	for _, p := range split(e.Line(), maxPart-overhead) {
		out = append(out, decorate(p, e.Level))
	}
	return out
}

// Batch packs events into fenced blocks. A new block is started whenever
// appending the next line would make the current one reach Ceiling.
func Batch(events []event.Event) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		out = append(out, fenceOpen+cur.String()+fenceClose)
		cur.Reset()
	}
	for _, e := range events {
		for _, part := range pieces(e) {
			if len(fenceOpen)+cur.Len()+len(part) >= Ceiling {
				flush()
			}
			cur.WriteString(part)
			cur.WriteByte('\n')
		}
	}
	flush()
	return out
}

// split cuts s into pieces of at most n bytes without breaking a UTF-8 sequence.
func split(s string, n int) []string {
	var parts []string
	for len(s) > n {
		cut := n
		for cut > 0 && !utf8Start(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = n
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	return append(parts, s)
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }

// Unfence strips the fence markup from a batch, returning its lines.
func Unfence(batch string) []string {
	body := strings.TrimSuffix(strings.TrimPrefix(batch, fenceOpen), fenceClose)
	body = strings.TrimSuffix(body, "\n")
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}
