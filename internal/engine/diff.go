package engine

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/difflens/internal/richtext"
)

// Segment is a run of text with its diff status. Type is equal, insert or
// remove.
type Segment struct {
	Type richtext.ChunkType `json:"type"`
	Text string             `json:"text"`
}

// TextDiff is the word-level diff of two texts. Left holds equal and removed
// segments, Right equal and inserted ones. Unified holds all three in diff
// order, for rendering both texts as one.
type TextDiff struct {
	Left    []Segment `json:"left"`
	Right   []Segment `json:"right"`
	Unified []Segment `json:"unified"`
}

// Changed reports whether the two texts differ.
func (d TextDiff) Changed() bool {
	for _, segs := range [][]Segment{d.Left, d.Right} {
		for _, s := range segs {
			if s.Type != richtext.ChunkEqual {
				return true
			}
		}
	}
	return false
}

// tokenize splits text into words, single whitespace runes and single
// punctuation or symbol runes.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			flush()
			tokens = append(tokens, string(r))
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return tokens
}

// DiffText computes a word-level diff of left and right. The diff stops early
// and returns ctx.Err() when ctx ends.
func DiffText(ctx context.Context, left, right string) (TextDiff, error) {
	switch {
	case left == "" && right == "":
		return TextDiff{}, nil
	case left == "":
		segs := []Segment{{Type: richtext.ChunkInsert, Text: right}}
		return TextDiff{Right: segs, Unified: segs}, nil
	case right == "":
		segs := []Segment{{Type: richtext.ChunkRemove, Text: left}}
		return TextDiff{Left: segs, Unified: segs}, nil
	}

	if err := ctx.Err(); err != nil {
		return TextDiff{}, err
	}
	dmp := diffmatchpatch.New()
	if deadline, ok := ctx.Deadline(); ok {
		dmp.DiffTimeout = max(time.Millisecond, time.Until(deadline))
	}

	// Tokens are joined with NUL so the character diff cannot split a word.
	diffs := dmp.DiffMain(strings.Join(tokenize(left), "\x00"), strings.Join(tokenize(right), "\x00"), false)
	if err := ctx.Err(); err != nil {
		return TextDiff{}, err
	}
	diffs = dmp.DiffCleanupSemantic(diffs)

	var out TextDiff
	for _, d := range diffs {
		text := strings.ReplaceAll(d.Text, "\x00", "")
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			out.Left = appendSegment(out.Left, richtext.ChunkEqual, text)
			out.Right = appendSegment(out.Right, richtext.ChunkEqual, text)
			out.Unified = appendSegment(out.Unified, richtext.ChunkEqual, text)
		case diffmatchpatch.DiffDelete:
			out.Left = appendSegment(out.Left, richtext.ChunkRemove, text)
			out.Unified = appendSegment(out.Unified, richtext.ChunkRemove, text)
		case diffmatchpatch.DiffInsert:
			out.Right = appendSegment(out.Right, richtext.ChunkInsert, text)
			out.Unified = appendSegment(out.Unified, richtext.ChunkInsert, text)
		}
	}
	return out, nil
}

// appendSegment merges text into the last segment when the type matches.
func appendSegment(segs []Segment, typ richtext.ChunkType, text string) []Segment {
	if n := len(segs); n > 0 && segs[n-1].Type == typ {
		segs[n-1].Text += text
		return segs
	}
	return append(segs, Segment{Type: typ, Text: text})
}
