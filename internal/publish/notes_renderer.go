package publish

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	notesRendererStyleConstant   = "notty"
	defaultNotesWordWrapConstant = 100
	minimumNotesWordWrapConstant = 20
	notesRendererTrimSetConstant = "\n"
)

// MarkdownNotesRenderer renders release notes with glamour using a style that does not
// depend on terminal capabilities.
type MarkdownNotesRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownNotesRenderer builds a renderer wrapping at wordWrap columns. Values below a
// readable width fall back to the default.
func NewMarkdownNotesRenderer(wordWrap int) (*MarkdownNotesRenderer, error) {
	if wordWrap < minimumNotesWordWrapConstant {
		wordWrap = defaultNotesWordWrapConstant
	}
	renderer, rendererError := glamour.NewTermRenderer(
		glamour.WithStandardStyle(notesRendererStyleConstant),
		glamour.WithWordWrap(wordWrap),
	)
	if rendererError != nil {
		return nil, rendererError
	}
	return &MarkdownNotesRenderer{renderer: renderer}, nil
}

// Render formats the markdown.
func (notesRenderer *MarkdownNotesRenderer) Render(markdown string) (string, error) {
	rendered, renderError := notesRenderer.renderer.Render(markdown)
	if renderError != nil {
		return "", renderError
	}
	return strings.Trim(rendered, notesRendererTrimSetConstant), nil
}
