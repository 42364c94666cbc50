package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minMarkdownWrap keeps narrow panels readable.
const minMarkdownWrap = 24

// markdownRenderer renders task descriptions for the info panel. The glamour
// renderer is rebuilt only when the wrap width changes, and the last result is
// reused while the same description stays on screen.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer

	lastSource string
	lastOutput string
}

// render returns src as styled terminal text wrapped to width. Rendering errors
// fall back to the raw text.
func (r *markdownRenderer) render(src string, width int) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	wrap := max(width, minMarkdownWrap)
	if r.renderer != nil && r.width == wrap && r.lastSource == src {
		return r.lastOutput
	}

	if r.renderer == nil || r.width != wrap {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return src
		}
		r.renderer = renderer
		r.width = wrap
	}

	out, err := r.renderer.Render(src)
	if err != nil {
		return src
	}
	r.lastSource = src
	r.lastOutput = strings.Trim(out, "\n")
	return r.lastOutput
}
