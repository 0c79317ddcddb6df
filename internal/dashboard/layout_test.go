package dashboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/nvidiamon/internal/dashboard"
)

func TestColumnsEmpty(t *testing.T) {
	assert.Empty(t, dashboard.Columns(nil, 80, 4))
	assert.Empty(t, dashboard.Columns([]dashboard.Block{}, 80, 4))
}

func TestColumnsSingleBlock(t *testing.T) {
	block := dashboard.Block{
		"\x1b[96mGPU 0\x1b[0m",
		"\x1b[92mPower: 100 W\x1b[0m",
		"Temp: 60",
	}

	lines := dashboard.Columns([]dashboard.Block{block}, 80, 4)
	require.Len(t, lines, 3)

	// Widest visible line is "Power: 100 W" (12 cells); every line is
	// padded to that width and styling survives.
	for i, line := range lines {
		assert.Equal(t, 12, dashboard.VisibleWidth(line), "line %d", i)
	}
	assert.Contains(t, lines[0], "\x1b[96m")
	assert.Contains(t, lines[1], "Power: 100 W")
}

func TestColumnsEscapesExcludedFromWidth(t *testing.T) {
	styled := dashboard.Block{"\x1b[93mAB\x1b[0m"}
	plain := dashboard.Block{"ABCD"}

	lines := dashboard.Columns([]dashboard.Block{styled, plain}, 80, 2)
	require.Len(t, lines, 1)

	// Column width is 4 from the plain block; the styled cell pads its
	// 2 visible chars with 2 spaces regardless of escape bytes.
	assert.Equal(t, 4+2+4, dashboard.VisibleWidth(lines[0]))
	assert.Contains(t, lines[0], "\x1b[93mAB\x1b[0m  ")
}

func TestColumnsGrid(t *testing.T) {
	// 5 blocks of 3 lines each, 20 visible cells wide, padding 4,
	// terminal 100 -> 100/(20+4) = 4 columns, so rows of 4 and 1.
	var blocks []dashboard.Block
	for i := 0; i < 5; i++ {
		blocks = append(blocks, dashboard.Block{
			strings.Repeat("a", 20),
			strings.Repeat("b", 20),
			strings.Repeat("c", 20),
		})
	}

	lines := dashboard.Columns(blocks, 100, 4)
	require.Len(t, lines, 6, "3 lines for each of 2 rows")

	// Row 1: four columns joined by exactly 4 spaces.
	assert.Equal(t, 4*20+3*4, dashboard.VisibleWidth(lines[0]))
	assert.Contains(t, lines[0], strings.Repeat("a", 20)+strings.Repeat(" ", 4)+strings.Repeat("a", 20))

	// Row 2: a single block, still padded to the shared column width.
	assert.Equal(t, 20, dashboard.VisibleWidth(lines[3]))
	assert.Equal(t, strings.Repeat("c", 20), lines[5])
}

func TestColumnsRaggedHeights(t *testing.T) {
	blocks := []dashboard.Block{
		{"aaaa", "bbbb", "cccc"},
		{"dddd"},
	}

	lines := dashboard.Columns(blocks, 20, 2)
	require.Len(t, lines, 3, "row height is the tallest block")

	// The short block is padded with blank lines, so rows stay
	// rectangular.
	assert.Equal(t, "aaaa  dddd", lines[0])
	assert.Equal(t, "bbbb  "+strings.Repeat(" ", 4), lines[1])
}

func TestColumnsBlockWiderThanTerminal(t *testing.T) {
	wide := dashboard.Block{strings.Repeat("x", 120)}

	lines := dashboard.Columns([]dashboard.Block{wide, wide}, 80, 4)
	require.Len(t, lines, 2, "one column per row, no truncation")
	assert.Equal(t, 120, dashboard.VisibleWidth(lines[0]))
}

func TestColumnsZeroWidthBlocks(t *testing.T) {
	// Blank-line blocks with no padding must not panic; everything
	// fits on one row.
	blocks := []dashboard.Block{{""}, {""}}

	lines := dashboard.Columns(blocks, 80, 0)
	require.Len(t, lines, 1)
	assert.Equal(t, 0, dashboard.VisibleWidth(lines[0]))
}

func TestColumnsDoesNotMutateInput(t *testing.T) {
	short := dashboard.Block{"a"}
	tall := dashboard.Block{"b", "b", "b"}
	blocks := []dashboard.Block{short, tall}

	_ = dashboard.Columns(blocks, 10, 2)

	assert.Len(t, short, 1, "height padding must not grow the caller's block")
}
