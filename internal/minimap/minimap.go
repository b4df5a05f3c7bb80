// Package minimap renders a scroll map as two narrow change-indicator columns,
// one per document, with an optional viewport thumb on each.
package minimap

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/difflens/internal/richtext"
	"github.com/zjrosen/difflens/internal/scrollmap"
)

// Column characters
const (
	trackChar  = '░' // Light shade
	thumbChar  = '▒' // Medium shade
	changeChar = '█' // Full block
	gapChar    = '▁' // Lower one eighth block
)

// Mark is what a minimap cell shows.
type Mark int

const (
	MarkNone   Mark = iota
	MarkChange      // The row holds changed content on this side
	MarkGap         // The row holds the insertion point of a change on the other side
)

// Cell is one row of one column.
type Cell struct {
	Mark  Mark
	Thumb bool
}

// Config configures minimap rendering.
type Config struct {
	Rows int // Rows in each column

	// Viewport of the left pane, in normalized coordinates. The right thumb
	// is placed through the scroll map. Visible <= 0 disables the thumb.
	Top     float64
	Visible float64

	Color bool // Style cells with lipgloss colors
}

var (
	removeColor = lipgloss.AdaptiveColor{Light: "#C4314B", Dark: "#E06C75"}
	insertColor = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#98C379"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#A0A1A7", Dark: "#5C6370"}
	thumbColor  = lipgloss.AdaptiveColor{Light: "#383A42", Dark: "#ABB2BF"}
)

// Columns computes the cells of both columns. The result is indexed by
// richtext.Side; each column has cfg.Rows cells.
func Columns(m *scrollmap.ScrollMap, cfg Config) [2][]Cell {
	var cols [2][]Cell
	if cfg.Rows <= 0 {
		return cols
	}
	cols[richtext.Left] = make([]Cell, cfg.Rows)
	cols[richtext.Right] = make([]Cell, cfg.Rows)
	if m == nil {
		return cols
	}

	for _, sec := range m.Sections {
		if sec.Highlight == scrollmap.HighlightNone {
			continue
		}
		for _, side := range []richtext.Side{richtext.Left, richtext.Right} {
			markSection(cols[side], sec, side)
		}
	}

	if cfg.Visible > 0 {
		top := clamp01(cfg.Top)
		bottom := clamp01(cfg.Top + cfg.Visible)
		markThumb(cols[richtext.Left], top, bottom)
		markThumb(cols[richtext.Right],
			scrollmap.MappedPosition(m, richtext.Left, top),
			scrollmap.MappedPosition(m, richtext.Left, bottom))
	}
	return cols
}

func markSection(col []Cell, sec scrollmap.Section, side richtext.Side) {
	rng := sec.Range(side)
	changed := sec.Highlight == scrollmap.HighlightBoth || sec.Highlight == scrollmap.HighlightFor(side)

	switch {
	case changed && rng.Width() > 0:
		first, last := rowSpan(len(col), rng.Start, rng.End)
		for row := first; row <= last; row++ {
			col[row].Mark = MarkChange
		}
	case sec.Type == scrollmap.Solo && rng.Width() == 0:
		row := rowOf(len(col), rng.Start)
		if col[row].Mark == MarkNone {
			col[row].Mark = MarkGap
		}
	}
}

func markThumb(col []Cell, top, bottom float64) {
	if bottom < top {
		top, bottom = bottom, top
	}
	first, last := rowSpan(len(col), top, bottom)
	for row := first; row <= last; row++ {
		col[row].Thumb = true
	}
}

// rowOf maps a normalized position to its row; 1 falls in the last row.
func rowOf(rows int, pos float64) int {
	row := int(clamp01(pos) * float64(rows))
	return min(row, rows-1)
}

// rowSpan returns the rows an interval touches. An interval ending exactly on
// a row boundary does not touch the row below it.
func rowSpan(rows int, start, end float64) (first, last int) {
	first = rowOf(rows, start)
	last = rowOf(rows, end)
	if last > first && float64(last) == clamp01(end)*float64(rows) {
		last--
	}
	return first, last
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

// Render renders the minimap as cfg.Rows lines joined by "\n". Each line is
// the left cell, a space and the right cell.
func Render(m *scrollmap.ScrollMap, cfg Config) string {
	if cfg.Rows <= 0 {
		return ""
	}
	cols := Columns(m, cfg)

	lines := make([]string, cfg.Rows)
	for row := range cfg.Rows {
		left := renderCell(cols[richtext.Left][row], richtext.Left, cfg.Color)
		right := renderCell(cols[richtext.Right][row], richtext.Right, cfg.Color)
		lines[row] = left + " " + right
	}
	return strings.Join(lines, "\n")
}

func renderCell(c Cell, side richtext.Side, color bool) string {
	var ch rune
	style := lipgloss.NewStyle()

	switch c.Mark {
	case MarkChange:
		ch = changeChar
		if side == richtext.Left {
			style = style.Foreground(removeColor)
		} else {
			style = style.Foreground(insertColor)
		}
	case MarkGap:
		ch = gapChar
		style = style.Foreground(mutedColor)
	default:
		if c.Thumb {
			ch = thumbChar
			style = style.Foreground(thumbColor)
		} else {
			ch = trackChar
			style = style.Foreground(mutedColor)
		}
	}

	if !color {
		return string(ch)
	}
	if c.Thumb && c.Mark != MarkNone {
		style = style.Bold(true)
	}
	return style.Render(string(ch))
}
