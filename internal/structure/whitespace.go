package structure

import (
	"regexp"
	"strings"

	"github.com/dgallion1/teiedit/internal/xmlnode"
)

var spaceRun = regexp.MustCompile(`\s+`)

type spaceMode int

const (
	spaceCollapse spaceMode = iota
	spaceStrip
	spacePreserve
)

// modeFor resolves the whitespace policy for el given its parent's mode.
// xml:space wins over the strip-space table and is inherited by the subtree.
func (t *Tables) modeFor(el *xmlnode.Element, parent spaceMode) spaceMode {
	if v, ok := el.Attr("xml:space"); ok {
		switch v {
		case "preserve":
			return spacePreserve
		case "default":
			parent = spaceCollapse
		}
	}
	if parent == spacePreserve {
		return spacePreserve
	}
	if t.StripsSpace(el.Tag) {
		return spaceStrip
	}
	return spaceCollapse
}

// normalizeText applies the collapse policy to a text run at position i of
// n siblings. Only the outward-facing edges are trimmed.
func normalizeText(s string, i, n int) string {
	s = spaceRun.ReplaceAllString(s, " ")
	if i == 0 {
		s = strings.TrimLeft(s, " ")
	}
	if i == n-1 {
		s = strings.TrimRight(s, " ")
	}
	return s
}
