// Package richtext holds the per-side diff annotations produced by the
// rich-text diff engine and the grouping of changed chunks into runs.
package richtext

import (
	"errors"
	"fmt"
)

// ChunkType is the diff status of a chunk.
type ChunkType string

const (
	ChunkEqual  ChunkType = "equal"
	ChunkInsert ChunkType = "insert"
	ChunkRemove ChunkType = "remove"
	ChunkMove   ChunkType = "move"
	ChunkStyle  ChunkType = "style"
)

// IsValid reports whether t is one of the known chunk types.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkEqual, ChunkInsert, ChunkRemove, ChunkMove, ChunkStyle:
		return true
	}
	return false
}

// Extent is a [start, end] pair in page-local coordinates.
type Extent [2]float64

// FontInfo describes the font of a run of text.
type FontInfo struct {
	Family string  `json:"family,omitempty" yaml:"family,omitempty"`
	Size   float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Color  string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// StyleChange records which tracked style attributes differ between the two
// sides for a chunk, with the font before and after.
type StyleChange struct {
	FontFamily bool     `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
	FontSize   bool     `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Color      bool     `json:"color,omitempty" yaml:"color,omitempty"`
	Before     FontInfo `json:"before" yaml:"before"`
	After      FontInfo `json:"after" yaml:"after"`
}

// DiffChunk is one logical unit of rich text on one side of a diff.
//
// Y holds one [top, bottom] extent per visual line in bottom-origin page
// coordinates (PDF convention); X holds the per-character [left, right]
// extents of the same lines.
type DiffChunk struct {
	ID        int          `json:"id" yaml:"id"`
	Type      ChunkType    `json:"type" yaml:"type"`
	PageIndex int          `json:"pageIndex" yaml:"pageIndex"`
	Y         []Extent     `json:"y" yaml:"y"`
	X         [][]Extent   `json:"x" yaml:"x"`
	Style     *StyleChange `json:"style,omitempty" yaml:"style,omitempty"`
}

// ErrMalformedChunk is returned by Validate for chunks the scroll map cannot use.
var ErrMalformedChunk = errors.New("malformed chunk")

// Validate checks the structural invariants of a chunk against the page count
// of its side.
func (c DiffChunk) Validate(pageCount int) error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: chunk %d has unknown type %q", ErrMalformedChunk, c.ID, c.Type)
	}
	if len(c.Y) != len(c.X) {
		return fmt.Errorf("%w: chunk %d has %d y extents and %d x lines", ErrMalformedChunk, c.ID, len(c.Y), len(c.X))
	}
	if c.PageIndex < 0 || c.PageIndex >= pageCount {
		return fmt.Errorf("%w: chunk %d on page %d, side has %d pages", ErrMalformedChunk, c.ID, c.PageIndex, pageCount)
	}
	return nil
}

// PageImage is the rendered size of one page. Height and Width are the layout
// model size, CanvasWidth/CanvasHeight the rendered bitmap size.
type PageImage struct {
	Width        float64 `json:"width" yaml:"width"`
	Height       float64 `json:"height" yaml:"height"`
	CanvasWidth  float64 `json:"canvasWidth" yaml:"canvasWidth"`
	CanvasHeight float64 `json:"canvasHeight" yaml:"canvasHeight"`
}

// EqualChunks returns the chunks of type equal, preserving order.
func EqualChunks(chunks []DiffChunk) []DiffChunk {
	out := make([]DiffChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Type == ChunkEqual {
			out = append(out, c)
		}
	}
	return out
}
