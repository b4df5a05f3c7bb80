package scrollmap

import (
	"fmt"
	"sync/atomic"

	"github.com/zjrosen/difflens/internal/geometry"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/richtext"
)

var debugAssertions atomic.Bool

// SetDebugAssertions makes Build panic on malformed input and on maps that
// break the section invariants. Off by default.
func SetDebugAssertions(enabled bool) {
	debugAssertions.Store(enabled)
}

// Build derives the normalized scroll map for in. It never mutates in.
func Build(in Input) *ScrollMap {
	if debugAssertions.Load() {
		if err := in.Validate(); err != nil {
			panic(fmt.Sprintf("scrollmap: %v", err))
		}
	}

	b := newBuilder(in)
	b.walk()
	sections := b.pad()
	m := normalize(sections)

	if debugAssertions.Load() {
		if err := CheckInvariants(m); err != nil {
			panic(fmt.Sprintf("scrollmap: %v", err))
		}
	}
	log.Debug(log.CatScrollMap, "Built scroll map",
		"sections", len(m.Sections),
		"leftHeight", m.LeftHeight,
		"rightHeight", m.RightHeight)
	return m
}

type builder struct {
	in       Input
	docs     [2]Document
	equal    [2][]richtext.DiffChunk
	cursor   [2]float64
	sections []Section
}

func newBuilder(in Input) *builder {
	b := &builder{in: in, docs: [2]Document{in.Left, in.Right}}
	for _, side := range sides {
		b.equal[side] = richtext.EqualChunks(b.docs[side].Chunks)
	}
	return b
}

// walk emits sections for the not-same groups in boundary order, with an
// equal section for every span of equal chunks between them.
func (b *builder) walk() {
	groups := richtext.GroupNotSameChunks(b.in.Left.Chunks, b.in.Right.Chunks)
	richtext.SortGroups(groups)

	afterSame := -1
	for i := 0; i < len(groups); i++ {
		g := groups[i]
		if g.AfterSame > afterSame {
			b.emitEqual(afterSame+1, g.AfterSame)
			afterSame = g.AfterSame
		}

		// Runs on one side are separated by equal chunks, so a boundary
		// holds at most one run per side.
		if i+1 < len(groups) && isReplacement(g, groups[i+1]) {
			b.emitReplacement(g, groups[i+1])
			i++
			continue
		}
		b.emitSolo(g)
	}

	last := max(len(b.equal[richtext.Left]), len(b.equal[richtext.Right])) - 1
	if last > afterSame {
		b.emitEqual(afterSame+1, last)
	}
}

// isReplacement reports whether two consecutive groups are the two halves of
// one replacement: changed on both sides at the same boundary.
func isReplacement(a, b richtext.NotSameGroup) bool {
	return a.AfterSame == b.AfterSame && a.Side != b.Side
}

// extent returns the clamped range and pages of chunks on side. An empty chunk
// set yields a zero-width range at the cursor.
func (b *builder) extent(side richtext.Side, chunks []richtext.DiffChunk) (Range, int, int) {
	doc := b.docs[side]
	cursor := b.cursor[side]
	lo, hi, ok := geometry.LowestAndHighest(chunks, doc.Images, b.in.PageSpacing)
	if !ok {
		page := geometry.PageAt(cursor, doc.Images, b.in.PageSpacing)
		return Range{Start: cursor, End: cursor}, page, page
	}
	start := max(lo, cursor)
	end := max(hi, start)
	return Range{Start: start, End: end}, chunks[0].PageIndex, chunks[len(chunks)-1].PageIndex
}

func (b *builder) point(side richtext.Side) (Range, int) {
	c := b.cursor[side]
	return Range{Start: c, End: c}, geometry.PageAt(c, b.docs[side].Images, b.in.PageSpacing)
}

// emitEqual emits the matched section for equal chunks [from, to] (indexes
// among equal chunks) on both sides.
func (b *builder) emitEqual(from, to int) {
	s := Section{Type: Matched, Highlight: HighlightNone}
	for _, side := range sides {
		eq := b.equal[side]
		lo := min(max(from, 0), len(eq))
		hi := min(max(to+1, lo), len(eq))
		s.Ranges[side], s.PageStart[side], s.PageEnd[side] = b.extent(side, eq[lo:hi])
	}
	b.add(s)
}

func (b *builder) emitReplacement(g1, g2 richtext.NotSameGroup) {
	s := Section{Type: Matched, Highlight: HighlightBoth}
	for _, g := range []richtext.NotSameGroup{g1, g2} {
		chunks := g.Chunks(b.docs[g.Side].Chunks)
		s.Ranges[g.Side], s.PageStart[g.Side], s.PageEnd[g.Side] = b.extent(g.Side, chunks)
	}
	b.add(s)
}

func (b *builder) emitSolo(g richtext.NotSameGroup) {
	s := Section{Type: Solo, Highlight: HighlightFor(g.Side)}
	chunks := g.Chunks(b.docs[g.Side].Chunks)
	s.Ranges[g.Side], s.PageStart[g.Side], s.PageEnd[g.Side] = b.extent(g.Side, chunks)

	other := g.Side.Other()
	var page int
	s.Ranges[other], page = b.point(other)
	s.PageStart[other], s.PageEnd[other] = page, page
	b.add(s)
}

func (b *builder) add(s Section) {
	b.sections = AddSection(b.sections, s)
	for _, side := range sides {
		b.cursor[side] = max(b.cursor[side], s.Ranges[side].End)
	}
}

// pad makes the map start at the origin and end at the bottom of each stack.
// Walked sections are re-stitched behind the leading pad, which also drops any
// section left empty in the middle of the walk.
func (b *builder) pad() []Section {
	var out []Section
	end := [2]float64{}
	endPage := [2]int{}

	if len(b.sections) > 0 {
		first := b.sections[0]
		for _, side := range sides {
			r := &first.Ranges[side]
			r.Start = max(r.Start, 0)
			r.End = max(r.End, r.Start)
		}
		if first.Ranges[richtext.Left].Start > 0 || first.Ranges[richtext.Right].Start > 0 {
			lead := Section{Type: Matched, Highlight: HighlightNone, PageEnd: first.PageStart}
			lead.Ranges[richtext.Left].End = first.Ranges[richtext.Left].Start
			lead.Ranges[richtext.Right].End = first.Ranges[richtext.Right].Start
			out = AddSection(out, lead)
		}
		out = AddSection(out, first)
		for _, s := range b.sections[1:] {
			out = AddSection(out, s)
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			for _, side := range sides {
				end[side] = last.Ranges[side].End
				endPage[side] = last.PageEnd[side]
			}
		}
	}

	trail := Section{Type: Matched, Highlight: HighlightNone, PageStart: endPage}
	for _, side := range sides {
		doc := b.docs[side]
		total := geometry.StackHeight(doc.Images, b.in.PageSpacing)
		trail.Ranges[side] = Range{Start: end[side], End: max(total, end[side])}
		trail.PageEnd[side] = max(len(doc.Images)-1, endPage[side])
	}
	return AddSection(out, trail)
}

// normalize divides every range by the height reached on its side.
func normalize(sections []Section) *ScrollMap {
	m := &ScrollMap{Sections: sections}
	if len(sections) == 0 {
		return m
	}
	last := sections[len(sections)-1]
	totals := [2]float64{last.Ranges[richtext.Left].End, last.Ranges[richtext.Right].End}
	m.LeftHeight, m.RightHeight = totals[richtext.Left], totals[richtext.Right]

	for i := range m.Sections {
		for _, side := range sides {
			if totals[side] <= 0 {
				continue
			}
			r := &m.Sections[i].Ranges[side]
			r.Start /= totals[side]
			r.End /= totals[side]
		}
	}
	return m
}

// CheckInvariants verifies that m is contiguous, non-negative and covers [0,1]
// on every side with positive height.
func CheckInvariants(m *ScrollMap) error {
	if len(m.Sections) == 0 {
		return nil
	}
	for i, s := range m.Sections {
		for _, side := range sides {
			r := s.Ranges[side]
			if r.End < r.Start {
				return fmt.Errorf("section %d (%s): %s range ends before it starts", i, s, side)
			}
			if i > 0 && m.Sections[i-1].Ranges[side].End != r.Start {
				return fmt.Errorf("section %d (%s): %s range does not continue section %d", i, s, side, i-1)
			}
		}
	}
	first, last := m.Sections[0], m.Sections[len(m.Sections)-1]
	for _, side := range sides {
		if first.Ranges[side].Start != 0 {
			return fmt.Errorf("%s side does not start at 0", side)
		}
		if m.Height(side) > 0 && last.Ranges[side].End != 1 {
			return fmt.Errorf("%s side does not end at 1", side)
		}
	}
	return nil
}
