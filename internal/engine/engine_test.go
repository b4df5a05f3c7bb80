package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/difflens/internal/richtext"
	"github.com/zjrosen/difflens/internal/scrollmap"
	"github.com/zjrosen/difflens/internal/workerpool"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		flags NormalizeFlags
		want  string
	}{
		{name: "nfc composes", in: "e\u0301", want: "\u00e9"},
		{name: "width fold", in: "ＡＢＣ１２３", flags: NormalizeFlags{FoldWidth: true}, want: "ABC123"},
		{name: "width kept by default", in: "ＡＢ", want: "ＡＢ"},
		{name: "collapse whitespace", in: "a \t\n b", flags: NormalizeFlags{CollapseWhitespace: true}, want: "a b"},
		{name: "trim", in: "  a  ", flags: NormalizeFlags{TrimSpace: true}, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeText(tt.in, tt.flags))
		})
	}
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"foo", ".", "bar", "(", ")", " ", "x"}, tokenize("foo.bar() x"))
	require.Nil(t, tokenize(""))
}

func TestDiffText_WordLevel(t *testing.T) {
	d, err := DiffText(context.Background(), "the quick brown fox", "the slow brown fox")
	require.NoError(t, err)
	require.True(t, d.Changed())

	require.Equal(t, []Segment{
		{Type: richtext.ChunkEqual, Text: "the "},
		{Type: richtext.ChunkRemove, Text: "quick"},
		{Type: richtext.ChunkEqual, Text: " brown fox"},
	}, d.Left)
	require.Equal(t, []Segment{
		{Type: richtext.ChunkEqual, Text: "the "},
		{Type: richtext.ChunkInsert, Text: "slow"},
		{Type: richtext.ChunkEqual, Text: " brown fox"},
	}, d.Right)
	require.Equal(t, []Segment{
		{Type: richtext.ChunkEqual, Text: "the "},
		{Type: richtext.ChunkRemove, Text: "quick"},
		{Type: richtext.ChunkInsert, Text: "slow"},
		{Type: richtext.ChunkEqual, Text: " brown fox"},
	}, d.Unified)
}

func TestDiffText_PureInsertionKeepsOrder(t *testing.T) {
	d, err := DiffText(context.Background(), "a b", "a x b")
	require.NoError(t, err)

	var text strings.Builder
	for _, s := range d.Unified {
		text.WriteString(s.Text)
	}
	require.Equal(t, "a x b", text.String())
	require.Len(t, d.Left, 1, "left has no removals so its equal runs merge")
}

func TestDiffText_EdgeCases(t *testing.T) {
	ctx := context.Background()

	d, err := DiffText(ctx, "", "")
	require.NoError(t, err)
	require.False(t, d.Changed())

	d, err = DiffText(ctx, "", "new")
	require.NoError(t, err)
	require.Equal(t, []Segment{{Type: richtext.ChunkInsert, Text: "new"}}, d.Right)

	d, err = DiffText(ctx, "old", "")
	require.NoError(t, err)
	require.Equal(t, []Segment{{Type: richtext.ChunkRemove, Text: "old"}}, d.Left)

	d, err = DiffText(ctx, "same text", "same text")
	require.NoError(t, err)
	require.False(t, d.Changed())
}

func TestDiffText_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DiffText(ctx, "a", "b")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHashBytes(t *testing.T) {
	got := HashBytes([][]byte{[]byte("abc"), nil})
	require.Equal(t, fmt.Sprintf("%016x", xxhash.Sum64String("abc")), got[0])
	require.Len(t, got[1], 16)
}

func newPool(t *testing.T) *workerpool.Pool {
	t.Helper()
	p, err := workerpool.New(workerpool.Config{
		Factory:    workerpool.LocalFactory(NewRegistry()),
		MaxWorkers: 2,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Terminate() })
	return p
}

func TestEngineThroughPool(t *testing.T) {
	p := newPool(t)
	ctx := context.Background()

	norm, err := workerpool.Call[string](ctx, p, FnNormalizeText, NormalizeArgs{
		Text:    " ＡＢ  c ",
		Options: NormalizeFlags{FoldWidth: true, CollapseWhitespace: true, TrimSpace: true},
	})
	require.NoError(t, err)
	require.Equal(t, "AB c", norm)

	d, err := workerpool.Call[TextDiff](ctx, p, FnDiffText, DiffArgs{Left: "a b", Right: "a c"})
	require.NoError(t, err)
	require.True(t, d.Changed())

	var back [][]byte
	sums, err := workerpool.Call[[]string](ctx, p, FnHashBytes, nil,
		workerpool.WithTransfer([]byte("abc")), workerpool.WithReceived(&back))
	require.NoError(t, err)
	require.Equal(t, HashBytes([][]byte{[]byte("abc")}), sums)
	require.Equal(t, [][]byte{[]byte("abc")}, back)

	_, err = p.Invoke(ctx, FnHashBytes, nil)
	require.ErrorIs(t, err, workerpool.ErrExecution)
}

func TestBuildScrollMapThroughPool(t *testing.T) {
	p := newPool(t)
	page := richtext.PageImage{Width: 80, Height: 100, CanvasWidth: 80, CanvasHeight: 100}
	chunk := richtext.DiffChunk{
		ID:   1,
		Type: richtext.ChunkEqual,
		Y:    []richtext.Extent{{90, 80}},
		X:    [][]richtext.Extent{{{0, 10}}},
	}
	doc := scrollmap.Document{Chunks: []richtext.DiffChunk{chunk}, Images: []richtext.PageImage{page}}
	in := scrollmap.Input{Left: doc, Right: doc}

	m, err := workerpool.Call[scrollmap.ScrollMap](context.Background(), p, FnBuildScrollMap, in)
	require.NoError(t, err)
	require.Equal(t, *scrollmap.Build(in), m)
}
