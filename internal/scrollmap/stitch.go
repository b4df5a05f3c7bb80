package scrollmap

import "github.com/zjrosen/difflens/internal/richtext"

var sides = [2]richtext.Side{richtext.Left, richtext.Right}

// AddSection stitches s onto the end of sections and returns the result.
//
// The tail of sections may be modified in place: trailing solo sections are
// trimmed where a new matched section begins inside them, sections left empty
// by that are dropped, and a new section that continues the previous one (same
// type, ending on the same pages) is merged into it, combining highlights.
// Otherwise s is appended with its start moved to the previous section's end, so the map
// never has gaps or overlaps.
func AddSection(sections []Section, s Section) []Section {
	for len(sections) > 0 {
		prev := &sections[len(sections)-1]
		switch {
		case s.Type == Matched && prev.Type == Solo:
			cullSolo(sections, &s)
		case s.Type == Solo && prev.Type == Matched:
			buttAgainst(prev, &s)
		}
		if !prev.Empty() {
			break
		}
		sections = sections[:len(sections)-1]
	}

	if s.Empty() {
		return sections
	}
	if len(sections) == 0 {
		return append(sections, s)
	}

	prev := &sections[len(sections)-1]
	if continues(*prev, s) {
		for _, side := range sides {
			if s.Ranges[side].End > prev.Ranges[side].End {
				prev.Ranges[side].End = s.Ranges[side].End
			}
		}
		prev.Highlight = combineHighlight(prev.Highlight, s.Highlight)
		return sections
	}

	buttAgainst(prev, &s)
	return append(sections, s)
}

// continues reports whether s can be folded into prev.
func continues(prev, s Section) bool {
	return prev.Type == s.Type && prev.PageEnd == s.PageEnd
}

// combineHighlight is the highlight of a section spanning both a and b.
func combineHighlight(a, b Highlight) Highlight {
	switch {
	case a == b || b == HighlightNone:
		return a
	case a == HighlightNone:
		return b
	}
	return HighlightBoth
}

// buttAgainst moves s's start to prev's end on both sides, extending s
// backwards over a gap or trimming it over an overlap.
func buttAgainst(prev *Section, s *Section) {
	for _, side := range sides {
		end := prev.Ranges[side].End
		if s.Ranges[side].Start == end {
			continue
		}
		s.Ranges[side].Start = end
		s.PageStart[side] = prev.PageEnd[side]
		if s.Ranges[side].End < end {
			s.Ranges[side].End = end
		}
		if s.PageEnd[side] < s.PageStart[side] {
			s.PageEnd[side] = s.PageStart[side]
		}
	}
}

// overlapsFrom reports whether t extends past s's start on either side.
func overlapsFrom(t, s Section) bool {
	for _, side := range sides {
		if t.Ranges[side].End > s.Ranges[side].Start {
			return true
		}
	}
	return false
}

// cullSolo keeps the solo sections at the tail of sections from reaching into
// the matched section s. Each overlapping trailing solo is clamped to end at
// s's start; the walk stops at the first section that is not solo or does not
// overlap. When the last section does not overlap at all it is extended up to
// s's start instead.
func cullSolo(sections []Section, s *Section) {
	last := &sections[len(sections)-1]
	if !overlapsFrom(*last, *s) {
		for _, side := range sides {
			if last.Ranges[side].End < s.Ranges[side].Start {
				last.Ranges[side].End = s.Ranges[side].Start
				last.PageEnd[side] = max(last.PageEnd[side], s.PageStart[side])
			}
		}
		return
	}

	for i := len(sections) - 1; i >= 0; i-- {
		t := &sections[i]
		if t.Type != Solo || !overlapsFrom(*t, *s) {
			return
		}
		for _, side := range sides {
			start := s.Ranges[side].Start
			if t.Ranges[side].End <= start {
				continue
			}
			t.Ranges[side].End = start
			t.PageEnd[side] = s.PageStart[side]
			if t.Ranges[side].Start > start {
				t.Ranges[side].Start = start
				t.PageStart[side] = s.PageStart[side]
			}
		}
	}
}
