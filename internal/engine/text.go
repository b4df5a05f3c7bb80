package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeFlags select the folds NormalizeText applies on top of NFC.
type NormalizeFlags struct {
	FoldWidth          bool `json:"foldWidth"`
	CollapseWhitespace bool `json:"collapseWhitespace"`
	TrimSpace          bool `json:"trimSpace"`
}

// NormalizeText brings text extracted from two documents to a comparable
// form: canonical composition (NFC), optionally folding full/half-width
// variants and runs of whitespace.
func NormalizeText(text string, flags NormalizeFlags) string {
	text = norm.NFC.String(text)
	if flags.FoldWidth {
		text = width.Fold.String(text)
	}
	if flags.CollapseWhitespace {
		text = collapseSpace(text)
	}
	if flags.TrimSpace {
		text = strings.TrimSpace(text)
	}
	return text
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
