// Package geometry converts page-local chunk coordinates into positions in a
// vertically stacked, spaced page layout.
//
// Chunk extents are bottom-origin (PDF convention); everything returned here is
// top-down and absolute within the stack.
package geometry

import (
	"math"

	"github.com/zjrosen/difflens/internal/richtext"
)

// PageOffset returns the top of page pageIndex in the stack: the sum of the
// heights of the pages before it plus one spacing per page. pageIndex may equal
// len(images); the result then includes the spacing after the final page.
func PageOffset(pageIndex int, images []richtext.PageImage, spacing float64) float64 {
	offset := 0.0
	for i := 0; i < pageIndex && i < len(images); i++ {
		offset += images[i].Height + spacing
	}
	return offset
}

// StackHeight is the total height of the stack without trailing spacing.
func StackHeight(images []richtext.PageImage, spacing float64) float64 {
	if len(images) == 0 {
		return 0
	}
	return PageOffset(len(images), images, spacing) - spacing
}

func pageHeight(pageIndex int, images []richtext.PageImage) float64 {
	if pageIndex < 0 || pageIndex >= len(images) {
		return 0
	}
	return images[pageIndex].Height
}

// toStack converts a bottom-origin y on page into a top-down stack offset.
func toStack(y float64, page int, images []richtext.PageImage, spacing float64) float64 {
	return PageOffset(page, images, spacing) + pageHeight(page, images) - y
}

// LowestAndHighest returns the smallest and largest top-down stack offsets
// covered by the lines of chunks. ok is false when no chunk has any line.
func LowestAndHighest(chunks []richtext.DiffChunk, images []richtext.PageImage, spacing float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, c := range chunks {
		if len(c.Y) == 0 {
			continue
		}
		base := PageOffset(c.PageIndex, images, spacing) + pageHeight(c.PageIndex, images)
		for _, line := range c.Y {
			for _, y := range line {
				v := base - y
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// ChunkOffset returns the top-down stack offset of the top of chunk's first line.
func ChunkOffset(chunk richtext.DiffChunk, images []richtext.PageImage, spacing float64) float64 {
	if len(chunk.Y) == 0 {
		return PageOffset(chunk.PageIndex, images, spacing)
	}
	first := chunk.Y[0]
	return math.Min(
		toStack(first[0], chunk.PageIndex, images, spacing),
		toStack(first[1], chunk.PageIndex, images, spacing),
	)
}

// ChunkOffsetPercentage locates chunk as a fraction of the whole stack.
func ChunkOffsetPercentage(chunk richtext.DiffChunk, images []richtext.PageImage, spacing float64) float64 {
	total := StackHeight(images, spacing)
	if total <= 0 {
		return 0
	}
	return ChunkOffset(chunk, images, spacing) / total
}

// PageAt returns the index of the page whose slot (page plus the spacing below
// it) contains offset, clamped to the valid page range.
func PageAt(offset float64, images []richtext.PageImage, spacing float64) int {
	if len(images) == 0 || offset <= 0 {
		return 0
	}
	top := 0.0
	for i, img := range images {
		top += img.Height + spacing
		if offset < top {
			return i
		}
	}
	return len(images) - 1
}

// Ratio is a horizontal and vertical scale pair.
type Ratio struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamped caps both components at 1 so content is never scaled up.
func (r Ratio) Clamped() Ratio {
	return Ratio{X: math.Min(r.X, 1), Y: math.Min(r.Y, 1)}
}

// ScaleFactors holds container-to-page ratios for one page.
type ScaleFactors struct {
	Canvas Ratio `json:"canvas"` // container / rendered canvas
	Image  Ratio `json:"image"`  // container / layout-model page
}

// ScaleFactorsForImage returns the ratios that convert layout-model page
// geometry into on-screen pixels for a container of the given size.
func ScaleFactorsForImage(image richtext.PageImage, containerWidth, containerHeight float64) ScaleFactors {
	return ScaleFactors{
		Canvas: Ratio{X: ratio(containerWidth, image.CanvasWidth), Y: ratio(containerHeight, image.CanvasHeight)},
		Image:  Ratio{X: ratio(containerWidth, image.Width), Y: ratio(containerHeight, image.Height)},
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
