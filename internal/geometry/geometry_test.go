package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/difflens/internal/richtext"
)

func pages(heights ...float64) []richtext.PageImage {
	out := make([]richtext.PageImage, len(heights))
	for i, h := range heights {
		out[i] = richtext.PageImage{Width: 600, Height: h, CanvasWidth: 1200, CanvasHeight: 2 * h}
	}
	return out
}

func TestPageOffset(t *testing.T) {
	imgs := pages(100, 200, 300)

	require.Equal(t, 0.0, PageOffset(0, imgs, 10))
	require.Equal(t, 110.0, PageOffset(1, imgs, 10))
	require.Equal(t, 320.0, PageOffset(2, imgs, 10))
	require.Equal(t, 630.0, PageOffset(3, imgs, 10), "one past the end includes trailing spacing")
	require.Equal(t, 630.0, PageOffset(9, imgs, 10), "out of range clamps to the stack")
	require.Equal(t, 620.0, StackHeight(imgs, 10))
	require.Equal(t, 0.0, StackHeight(nil, 10))
}

func TestLowestAndHighest_ConvertsToTopDown(t *testing.T) {
	imgs := pages(100, 100)
	chunks := []richtext.DiffChunk{
		{PageIndex: 0, Y: []richtext.Extent{{90, 80}, {70, 60}}},
		{PageIndex: 1, Y: []richtext.Extent{{50, 40}}},
	}

	lo, hi, ok := LowestAndHighest(chunks, imgs, 20)

	require.True(t, ok)
	require.Equal(t, 10.0, lo)  // 0 + 100 - 90
	require.Equal(t, 180.0, hi) // 120 + 100 - 40
}

func TestLowestAndHighest_NoLines(t *testing.T) {
	_, _, ok := LowestAndHighest([]richtext.DiffChunk{{PageIndex: 0}}, pages(100), 0)
	require.False(t, ok)

	_, _, ok = LowestAndHighest(nil, pages(100), 0)
	require.False(t, ok)
}

func TestChunkOffsetPercentage(t *testing.T) {
	imgs := pages(100, 100)
	chunk := richtext.DiffChunk{PageIndex: 1, Y: []richtext.Extent{{100, 90}, {20, 10}}}

	require.Equal(t, 100.0, ChunkOffset(chunk, imgs, 0))
	require.InDelta(t, 0.5, ChunkOffsetPercentage(chunk, imgs, 0), 1e-9)
	require.Equal(t, 0.0, ChunkOffsetPercentage(chunk, nil, 0))
}

func TestPageAt(t *testing.T) {
	imgs := pages(100, 100, 100)

	require.Equal(t, 0, PageAt(-5, imgs, 10))
	require.Equal(t, 0, PageAt(105, imgs, 10), "spacing belongs to the page above")
	require.Equal(t, 1, PageAt(110, imgs, 10))
	require.Equal(t, 2, PageAt(1000, imgs, 10))
	require.Equal(t, 0, PageAt(50, nil, 10))
}

func TestScaleFactorsForImage(t *testing.T) {
	img := richtext.PageImage{Width: 600, Height: 800, CanvasWidth: 1200, CanvasHeight: 1600}

	f := ScaleFactorsForImage(img, 900, 400)

	require.Equal(t, Ratio{X: 0.75, Y: 0.25}, f.Canvas)
	require.Equal(t, Ratio{X: 1.5, Y: 0.5}, f.Image)
	require.Equal(t, Ratio{X: 1, Y: 0.5}, f.Image.Clamped())

	zero := ScaleFactorsForImage(richtext.PageImage{}, 100, 100)
	require.Equal(t, Ratio{}, zero.Canvas)
}
