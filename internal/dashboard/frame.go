package dashboard

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

const (
	fallbackWidth = 80

	cursorUp    = "\x1b[%dF"
	eraseToEOL  = "\x1b[K"
	clearScreen = "\x1b[2J\x1b[H"
)

// Painter writes frames to a terminal, overwriting the previous frame in
// place. A full clear runs on a coarser cadence to correct drift from
// terminal resizes or stray output.
type Painter struct {
	out       io.Writer
	clearEach time.Duration
	lastClear time.Time
	lastLines int
	now       func() time.Time
}

func NewPainter(out io.Writer, clearEach time.Duration) *Painter {
	return &Painter{
		out:       out,
		clearEach: clearEach,
		now:       time.Now,
	}
}

// Paint emits one frame. The previous frame's line count is overwritten
// by repositioning the cursor; each line is erased to end of line so a
// shorter frame leaves no residue.
func (p *Painter) Paint(lines []string) {
	now := p.now()
	if p.lastClear.IsZero() || now.Sub(p.lastClear) >= p.clearEach {
		fmt.Fprint(p.out, clearScreen)
		p.lastClear = now
		p.lastLines = 0
	} else if p.lastLines > 0 {
		fmt.Fprintf(p.out, cursorUp, p.lastLines)
	}

	for _, line := range lines {
		fmt.Fprint(p.out, line, eraseToEOL, "\n")
	}
	p.lastLines = len(lines)
}

// LastLines returns the height of the previously painted frame.
func (p *Painter) LastLines() int {
	return p.lastLines
}

// TerminalWidth probes the output terminal, with the historical 80
// column fallback when the output is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}

	return width
}
