package richtext

import "slices"

// NotSameOptions selects which differences count when deciding whether a
// chunk should be highlighted.
type NotSameOptions struct {
	Content    bool
	FontFamily bool
	FontSize   bool
	Color      bool
}

// IsChunkNotSame reports whether chunk differs from its counterpart under opts:
// content changes count when opts.Content is set, and equal chunks count when
// any enabled style attribute is flagged on the chunk.
func IsChunkNotSame(chunk DiffChunk, opts NotSameOptions) bool {
	if opts.Content && chunk.Type != ChunkEqual {
		return true
	}
	if chunk.Type != ChunkEqual || chunk.Style == nil {
		return false
	}
	s := chunk.Style
	return (opts.FontFamily && s.FontFamily) ||
		(opts.FontSize && s.FontSize) ||
		(opts.Color && s.Color)
}

// NotSameGroup is a contiguous run [Start, End] of non-equal chunks on one
// side. AfterSame is the index, counted among that side's equal chunks only,
// of the last equal chunk before the run, or -1 if the run opens the document.
type NotSameGroup struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	AfterSame int  `json:"afterSame"`
	Side      Side `json:"side"`
}

// Len returns the number of chunks in the group.
func (g NotSameGroup) Len() int {
	return g.End - g.Start + 1
}

// GroupNotSameChunks groups the non-equal runs of both sides. Left groups come
// first, then right groups, each in document order. Use SortGroups to order
// them by boundary.
func GroupNotSameChunks(left, right []DiffChunk) []NotSameGroup {
	groups := groupSide(left, Left)
	return append(groups, groupSide(right, Right)...)
}

// groupSide scans chunks from the end so that every run is closed by the
// equal chunk that precedes it; that chunk's equal-index is the run's anchor.
func groupSide(chunks []DiffChunk, side Side) []NotSameGroup {
	equalsSeen := 0
	for _, c := range chunks {
		if c.Type == ChunkEqual {
			equalsSeen++
		}
	}

	var groups []NotSameGroup
	open := false
	var cur NotSameGroup

	for i := len(chunks) - 1; i >= 0; i-- {
		if chunks[i].Type != ChunkEqual {
			if !open {
				cur = NotSameGroup{End: i, Side: side}
				open = true
			}
			cur.Start = i
			continue
		}
		// equalsSeen counts equal chunks at indexes <= i.
		if open {
			cur.AfterSame = equalsSeen - 1
			groups = append(groups, cur)
			open = false
		}
		equalsSeen--
	}
	if open {
		cur.AfterSame = -1
		groups = append(groups, cur)
	}

	slices.Reverse(groups)
	return groups
}

// SortGroups orders groups by AfterSame ascending. The sort is stable, so a
// left and right group anchored at the same boundary keep left-then-right.
func SortGroups(groups []NotSameGroup) {
	slices.SortStableFunc(groups, func(a, b NotSameGroup) int {
		return a.AfterSame - b.AfterSame
	})
}

// Chunks returns the slice of chunks covered by g.
func (g NotSameGroup) Chunks(chunks []DiffChunk) []DiffChunk {
	return chunks[g.Start : g.End+1]
}
