// Package scrollmap builds and queries the coordinate map that keeps the two
// panes of a rich-text diff scrolled to corresponding content.
//
// A ScrollMap is an ordered list of sections. Each section pairs a vertical
// range on the left document with one on the right; consecutive sections are
// contiguous on both sides and, after normalization, every value lies in
// [0, 1]. Maps are immutable once built.
package scrollmap

import (
	"encoding/json"
	"fmt"

	"github.com/zjrosen/difflens/internal/richtext"
)

// SectionType says whether a section aligns content present on both sides.
type SectionType string

const (
	// Matched sections hold content considered equivalent on both sides.
	Matched SectionType = "matched"
	// Solo sections hold content present on one side only; the other side's
	// range is a zero-width insertion point.
	Solo SectionType = "solo"
)

// Highlight says which side(s) of a section carry a change.
type Highlight string

const (
	HighlightNone  Highlight = "none"
	HighlightLeft  Highlight = "left"
	HighlightRight Highlight = "right"
	HighlightBoth  Highlight = "both"
)

// HighlightFor returns the highlight of a change on side.
func HighlightFor(side richtext.Side) Highlight {
	if side == richtext.Left {
		return HighlightLeft
	}
	return HighlightRight
}

// Range is a [Start, End] interval. It encodes as a two element JSON array.
type Range struct {
	Start float64
	End   float64
}

// Width returns End - Start.
func (r Range) Width() float64 { return r.End - r.Start }

// Contains reports whether v lies in the closed interval.
func (r Range) Contains(v float64) bool { return v >= r.Start && v <= r.End }

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Start, r.End})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// Section is one entry of a scroll map. Ranges, PageStart and PageEnd are
// indexed by richtext.Side.
type Section struct {
	Ranges    [2]Range    `json:"ranges"`
	Type      SectionType `json:"type"`
	Highlight Highlight   `json:"highlight"`
	PageStart [2]int      `json:"pageStart"`
	PageEnd   [2]int      `json:"pageEnd"`
}

// Range returns the section's range on side.
func (s Section) Range(side richtext.Side) Range { return s.Ranges[side] }

// Empty reports whether the section has zero width on both sides.
func (s Section) Empty() bool {
	return s.Ranges[richtext.Left].Width() == 0 && s.Ranges[richtext.Right].Width() == 0
}

func (s Section) String() string {
	l, r := s.Ranges[richtext.Left], s.Ranges[richtext.Right]
	return fmt.Sprintf("%s/%s L[%g,%g] R[%g,%g]", s.Type, s.Highlight, l.Start, l.End, r.Start, r.End)
}

// ScrollMap is the normalized, bidirectional coordinate map between the left
// and right documents. LeftHeight and RightHeight are the absolute stack
// heights the ranges were divided by.
type ScrollMap struct {
	Sections    []Section `json:"sections"`
	LeftHeight  float64   `json:"leftHeight"`
	RightHeight float64   `json:"rightHeight"`
}

// Height returns the absolute height of side.
func (m *ScrollMap) Height(side richtext.Side) float64 {
	if side == richtext.Left {
		return m.LeftHeight
	}
	return m.RightHeight
}

// Document is one side of the comparison.
type Document struct {
	Chunks []richtext.DiffChunk `json:"chunks" yaml:"chunks"`
	Images []richtext.PageImage `json:"images" yaml:"images"`
}

// Input is everything a scroll map is derived from.
type Input struct {
	Left        Document `json:"left" yaml:"left"`
	Right       Document `json:"right" yaml:"right"`
	PageSpacing float64  `json:"pageSpacing" yaml:"pageSpacing"`
}

// Doc returns the document on side.
func (in Input) Doc(side richtext.Side) Document {
	if side == richtext.Left {
		return in.Left
	}
	return in.Right
}

// Validate checks every chunk of both documents.
func (in Input) Validate() error {
	for _, side := range []richtext.Side{richtext.Left, richtext.Right} {
		doc := in.Doc(side)
		for _, c := range doc.Chunks {
			if err := c.Validate(len(doc.Images)); err != nil {
				return fmt.Errorf("%s: %w", side, err)
			}
		}
	}
	return nil
}
