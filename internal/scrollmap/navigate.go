package scrollmap

import (
	"slices"

	"github.com/zjrosen/difflens/internal/geometry"
	"github.com/zjrosen/difflens/internal/richtext"
)

// Stop is one jump-to-change target. Offset is the chunk's normalized position
// on its own side, Mapped the matching position on the other side.
type Stop struct {
	ChunkID int                `json:"chunkId"`
	Side    richtext.Side      `json:"side"`
	Type    richtext.ChunkType `json:"type"`
	Page    int                `json:"page"`
	Offset  float64            `json:"offset"`
	Mapped  float64            `json:"mapped"`
}

// Left returns the stop's position on the left side.
func (s Stop) Left() float64 {
	if s.Side == richtext.Left {
		return s.Offset
	}
	return s.Mapped
}

// Changes lists every chunk of in that is not the same under opts, ordered
// top to bottom in the left pane's frame. Ties keep left chunks first.
func Changes(in Input, m *ScrollMap, opts richtext.NotSameOptions) []Stop {
	var stops []Stop
	for _, side := range sides {
		doc := in.Doc(side)
		for _, c := range doc.Chunks {
			if !richtext.IsChunkNotSame(c, opts) {
				continue
			}
			own, mapped := position(m, side, c, doc, in.PageSpacing)
			stops = append(stops, Stop{
				ChunkID: c.ID,
				Side:    side,
				Type:    c.Type,
				Page:    c.PageIndex,
				Offset:  own,
				Mapped:  mapped,
			})
		}
	}
	slices.SortStableFunc(stops, func(a, b Stop) int {
		switch {
		case a.Left() < b.Left():
			return -1
		case a.Left() > b.Left():
			return 1
		}
		return 0
	})
	return stops
}

// Align returns the left and right scroll positions that bring chunk, which
// lives in doc on side, to the top of both panes.
func Align(m *ScrollMap, side richtext.Side, chunk richtext.DiffChunk, doc Document, spacing float64) (left, right float64) {
	own, mapped := position(m, side, chunk, doc, spacing)
	if side == richtext.Left {
		return own, mapped
	}
	return mapped, own
}

func position(m *ScrollMap, side richtext.Side, chunk richtext.DiffChunk, doc Document, spacing float64) (own, mapped float64) {
	h := m.Height(side)
	if h <= 0 {
		return 0, MappedPosition(m, side, 0)
	}
	own = min(max(geometry.ChunkOffset(chunk, doc.Images, spacing)/h, 0), 1)
	return own, MappedPosition(m, side, own)
}
