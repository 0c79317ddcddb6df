package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPainterRepaintsInPlace(t *testing.T) {
	var buf bytes.Buffer
	p := NewPainter(&buf, time.Minute)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	p.Paint([]string{"one", "two", "three"})
	assert.Equal(t, 3, p.LastLines())
	first := buf.String()
	assert.True(t, strings.HasPrefix(first, clearScreen), "first frame clears the screen")
	assert.NotContains(t, first, "\x1b[3F", "first frame has nothing to overwrite")

	buf.Reset()
	clock = clock.Add(time.Second)
	p.Paint([]string{"four", "five"})
	second := buf.String()
	assert.True(t, strings.HasPrefix(second, "\x1b[3F"), "second frame moves up over the previous 3 lines")
	assert.Equal(t, 2, p.LastLines())
}

func TestPainterPeriodicClear(t *testing.T) {
	var buf bytes.Buffer
	p := NewPainter(&buf, 10*time.Second)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	p.Paint([]string{"a"})
	buf.Reset()

	clock = clock.Add(3 * time.Second)
	p.Paint([]string{"b"})
	assert.NotContains(t, buf.String(), clearScreen, "no clear inside the interval")
	buf.Reset()

	clock = clock.Add(10 * time.Second)
	p.Paint([]string{"c"})
	out := buf.String()
	assert.Contains(t, out, clearScreen, "clear once the interval elapses")
	assert.NotContains(t, out, "\x1b[1F", "a cleared screen has nothing to overwrite")
}

func TestPainterErasesLineTails(t *testing.T) {
	var buf bytes.Buffer
	p := NewPainter(&buf, time.Minute)
	p.now = time.Now

	p.Paint([]string{"line"})
	assert.Contains(t, buf.String(), "line"+eraseToEOL+"\n")
}
