package richtext

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func chunksOf(types ...ChunkType) []DiffChunk {
	out := make([]DiffChunk, len(types))
	for i, t := range types {
		out[i] = DiffChunk{ID: i, Type: t}
	}
	return out
}

func TestGroupNotSameChunks_AnchorsToPrecedingEqual(t *testing.T) {
	left := chunksOf(ChunkEqual, ChunkInsert, ChunkInsert, ChunkEqual, ChunkRemove, ChunkEqual, ChunkMove)

	groups := GroupNotSameChunks(left, nil)

	require.Equal(t, []NotSameGroup{
		{Start: 1, End: 2, AfterSame: 0, Side: Left},
		{Start: 4, End: 4, AfterSame: 1, Side: Left},
		{Start: 6, End: 6, AfterSame: 2, Side: Left},
	}, groups)
}

func TestGroupNotSameChunks_LeadingRun(t *testing.T) {
	right := chunksOf(ChunkInsert, ChunkStyle, ChunkEqual)

	groups := GroupNotSameChunks(nil, right)

	require.Equal(t, []NotSameGroup{{Start: 0, End: 1, AfterSame: -1, Side: Right}}, groups)
}

func TestGroupNotSameChunks_AllEqual(t *testing.T) {
	side := chunksOf(ChunkEqual, ChunkEqual)
	require.Empty(t, GroupNotSameChunks(side, side))
}

func TestGroupNotSameChunks_AllChanged(t *testing.T) {
	groups := GroupNotSameChunks(chunksOf(ChunkRemove, ChunkRemove), nil)
	require.Equal(t, []NotSameGroup{{Start: 0, End: 1, AfterSame: -1, Side: Left}}, groups)
}

func TestSortGroups_StableAcrossSides(t *testing.T) {
	left := chunksOf(ChunkEqual, ChunkRemove, ChunkEqual, ChunkEqual, ChunkRemove)
	right := chunksOf(ChunkInsert, ChunkEqual, ChunkInsert, ChunkEqual, ChunkEqual)

	groups := GroupNotSameChunks(left, right)
	SortGroups(groups)

	require.Equal(t, []NotSameGroup{
		{Start: 0, End: 0, AfterSame: -1, Side: Right},
		{Start: 1, End: 1, AfterSame: 0, Side: Left},
		{Start: 2, End: 2, AfterSame: 0, Side: Right},
		{Start: 4, End: 4, AfterSame: 2, Side: Left},
	}, groups)
}

func TestIsChunkNotSame(t *testing.T) {
	styled := DiffChunk{Type: ChunkEqual, Style: &StyleChange{FontSize: true}}
	plain := DiffChunk{Type: ChunkEqual}
	inserted := DiffChunk{Type: ChunkInsert}

	tests := []struct {
		name  string
		chunk DiffChunk
		opts  NotSameOptions
		want  bool
	}{
		{"content change counted", inserted, NotSameOptions{Content: true}, true},
		{"content change ignored", inserted, NotSameOptions{FontSize: true}, false},
		{"style flag enabled", styled, NotSameOptions{FontSize: true}, true},
		{"style flag not tracked", styled, NotSameOptions{Color: true, Content: true}, false},
		{"plain equal", plain, NotSameOptions{Content: true, FontFamily: true, FontSize: true, Color: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsChunkNotSame(tt.chunk, tt.opts))
		})
	}
}

func TestProperty_GroupsCoverEveryChangedChunk(t *testing.T) {
	types := []ChunkType{ChunkEqual, ChunkInsert, ChunkRemove, ChunkMove, ChunkStyle}
	rapid.Check(t, func(rt *rapid.T) {
		picked := rapid.SliceOfN(rapid.SampledFrom(types), 0, 40).Draw(rt, "types")
		chunks := chunksOf(picked...)

		groups := GroupNotSameChunks(chunks, nil)

		covered := make([]bool, len(chunks))
		prevEnd := -1
		for _, g := range groups {
			require.Greater(rt, g.Start, prevEnd, "groups are ordered and disjoint")
			require.LessOrEqual(rt, g.Start, g.End)
			for i := g.Start; i <= g.End; i++ {
				require.NotEqual(rt, ChunkEqual, chunks[i].Type)
				covered[i] = true
			}
			if g.Start > 0 {
				require.Equal(rt, ChunkEqual, chunks[g.Start-1].Type, "runs are maximal")
			}
			if g.End < len(chunks)-1 {
				require.Equal(rt, ChunkEqual, chunks[g.End+1].Type, "runs are maximal")
			}
			require.Equal(rt, len(EqualChunks(chunks[:g.Start]))-1, g.AfterSame)
			prevEnd = g.End
		}
		for i, c := range chunks {
			require.Equal(rt, c.Type != ChunkEqual, covered[i], "chunk %d", i)
		}
	})
}

func TestProperty_OneGroupPerSideAndBoundary(t *testing.T) {
	types := []ChunkType{ChunkEqual, ChunkInsert, ChunkRemove, ChunkMove}
	rapid.Check(t, func(rt *rapid.T) {
		left := chunksOf(rapid.SliceOfN(rapid.SampledFrom(types), 0, 30).Draw(rt, "left")...)
		right := chunksOf(rapid.SliceOfN(rapid.SampledFrom(types), 0, 30).Draw(rt, "right")...)

		type boundary struct {
			side      Side
			afterSame int
		}
		seen := make(map[boundary]bool)
		for _, g := range GroupNotSameChunks(left, right) {
			key := boundary{g.Side, g.AfterSame}
			require.False(rt, seen[key], "two groups on %s after equal chunk %d", g.Side, g.AfterSame)
			seen[key] = true
		}
	})
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("Right")
	require.NoError(t, err)
	require.Equal(t, Right, s)
	require.Equal(t, Left, Right.Other())
	require.Equal(t, "left", Left.String())

	_, err = ParseSide("up")
	require.Error(t, err)
}

func TestDiffChunk_Validate(t *testing.T) {
	good := DiffChunk{ID: 1, Type: ChunkEqual, PageIndex: 0, Y: []Extent{{10, 0}}, X: [][]Extent{{{0, 5}}}}
	require.NoError(t, good.Validate(1))

	bad := good
	bad.X = nil
	require.ErrorIs(t, bad.Validate(1), ErrMalformedChunk)

	require.ErrorIs(t, good.Validate(0), ErrMalformedChunk)
}
