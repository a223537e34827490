package article

import "strings"

// Hints appended to the formatted article. The index is the step, clamped
// to [0, 3].
var hints = [...]string{
	"Note: At this point, we're just introducing the topic title.",
	"Note: At this point, we've introduced the first part of the article.",
	"Note: At this point, we've covered the full article text but not the code yet.",
	"Note: At this point, we've covered the full article and code.",
}

// Hint returns the progress note for step. Negative steps are treated as
// the introduction; anything past the code step gets the final note.
func Hint(step int) string {
	switch {
	case step <= 0:
		return hints[0]
	case step >= len(hints)-1:
		return hints[len(hints)-1]
	default:
		return hints[step]
	}
}

// Format renders c for inclusion in a prompt. It is pure: the same content
// and step always produce the same string. A nil content yields "".
func Format(c *Content, step int) string {
	if c == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("ARTICLE TITLE: ")
	b.WriteString(c.Title)
	b.WriteString("\n\n")

	if len(c.Description) > 0 {
		b.WriteString("ARTICLE CONTENT:\n")
		for _, seg := range c.Description {
			b.WriteString(seg.Type)
			b.WriteString(": ")
			b.WriteString(seg.Content)
			b.WriteString("\n")
		}
	}

	if c.HasCode() {
		b.WriteString("\nCODE (")
		b.WriteString(c.Language)
		b.WriteString("):\n")
		b.WriteString(c.Code)
	}

	b.WriteString("\n\n")
	b.WriteString(Hint(step))
	return b.String()
}
