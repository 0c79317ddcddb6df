// Package dashboard renders per-device text blocks into a column grid
// sized to the terminal and repaints it in place between ticks.
package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Block is the ordered, style-annotated lines describing one device for
// one tick.
type Block []string

// VisibleWidth counts printable cells, excluding ANSI escape sequences.
func VisibleWidth(s string) int {
	return lipgloss.Width(s)
}

// pad right-pads s with spaces to the given visible width. Styling
// sequences do not count toward the width.
func pad(s string, width int) string {
	gap := width - VisibleWidth(s)
	if gap <= 0 {
		return s
	}

	return s + strings.Repeat(" ", gap)
}

// Columns packs blocks into a row-major grid. All columns share one
// width, the widest visible line across every block, and rows are
// rectangular: within a row shorter blocks are padded with blank lines
// to the tallest. At least one column is always used, even when a block
// is wider than the terminal.
func Columns(blocks []Block, termWidth, padding int) []string {
	if len(blocks) == 0 {
		return nil
	}

	colWidth := 0
	for _, block := range blocks {
		for _, line := range block {
			if w := VisibleWidth(line); w > colWidth {
				colWidth = w
			}
		}
	}

	cell := colWidth + padding
	if cell < 1 {
		cell = 1
	}
	cols := termWidth / cell
	if cols < 1 {
		cols = 1
	}

	gap := strings.Repeat(" ", padding)

	var out []string
	for start := 0; start < len(blocks); start += cols {
		end := start + cols
		if end > len(blocks) {
			end = len(blocks)
		}
		row := make([]Block, end-start)
		copy(row, blocks[start:end])

		height := 0
		for _, block := range row {
			if len(block) > height {
				height = len(block)
			}
		}
		for i, block := range row {
			for len(block) < height {
				block = append(block, "")
			}
			row[i] = block
		}

		for line := 0; line < height; line++ {
			parts := make([]string, len(row))
			for i, block := range row {
				parts[i] = pad(block[line], colWidth)
			}
			out = append(out, strings.Join(parts, gap))
		}
	}

	return out
}
