// Package speech builds the spoken output returned with every engine
// response. Plain sentences stay plain; once a pause or language switch is
// added the result is wrapped in SSML for the voice platform.
package speech

import (
	"fmt"
	"strings"
)

// Builder assembles a speech payload piece by piece.
type Builder struct {
	parts  []string
	markup bool
}

// New creates an empty speech builder.
func New() *Builder {
	return &Builder{}
}

// Text appends a formatted sentence.
func (b *Builder) Text(format string, args ...interface{}) *Builder {
	b.parts = append(b.parts, escape(fmt.Sprintf(format, args...)))
	return b
}

// Break appends a pause, e.g. Break("3s").
func (b *Builder) Break(duration string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(`<break time=%q/>`, duration))
	b.markup = true
	return b
}

// Lang appends text spoken in another language, e.g. an English game title
// inside otherwise Spanish narration.
func (b *Builder) Lang(lang, text string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(`<lang xml:lang=%q>%s</lang>`, lang, escape(text)))
	b.markup = true
	return b
}

// String renders the assembled speech. Output with markup is wrapped in a
// <speak> envelope; plain text is returned as-is.
func (b *Builder) String() string {
	joined := strings.Join(b.parts, " ")
	if !b.markup {
		return joined
	}
	return "<speak>" + joined + "</speak>"
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
