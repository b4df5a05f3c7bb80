package scrollmap

import "github.com/zjrosen/difflens/internal/richtext"

// SectionAt returns the index of the first section whose range on side
// contains pos.
func SectionAt(m *ScrollMap, side richtext.Side, pos float64) (int, bool) {
	if m == nil {
		return 0, false
	}
	for i := range m.Sections {
		if m.Sections[i].Ranges[side].Contains(pos) {
			return i, true
		}
	}
	return 0, false
}

// MappedPosition translates the normalized position pos on side from into the
// corresponding normalized position on the other side. Positions outside the
// map are returned unchanged.
func MappedPosition(m *ScrollMap, from richtext.Side, pos float64) float64 {
	i, ok := SectionAt(m, from, pos)
	if !ok {
		return pos
	}
	s := m.Sections[i]
	return lerp(s.Ranges[from], s.Ranges[from.Other()], pos)
}

// lerp maps pos from src onto dst. A zero-width src maps to dst.Start.
func lerp(src, dst Range, pos float64) float64 {
	var t float64
	if w := src.Width(); w > 0 {
		t = (pos - src.Start) / w
	}
	if t <= 0 {
		return dst.Start
	}
	if t >= 1 {
		return dst.End
	}
	return (1-t)*dst.Start + t*dst.End
}

// MappedPage returns the page on the other side that pos on side from maps
// into. The section's page span is interpolated the same way as positions.
func MappedPage(m *ScrollMap, from richtext.Side, pos float64) int {
	i, ok := SectionAt(m, from, pos)
	if !ok {
		return 0
	}
	s := m.Sections[i]
	to := from.Other()
	if s.PageStart[to] == s.PageEnd[to] {
		return s.PageStart[to]
	}
	pages := Range{Start: float64(s.PageStart[to]), End: float64(s.PageEnd[to])}
	p := int(lerp(s.Ranges[from], pages, pos))
	return min(max(p, s.PageStart[to]), s.PageEnd[to])
}
