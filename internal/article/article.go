// Package article models the article a dialogue is about and renders it
// into the text block the prompt builder embeds.
package article

// Segment is one piece of article prose. Type is a free-form label such as
// "heading" or "paragraph"; it is never validated.
type Segment struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Content is the article as supplied by a client on a single request.
type Content struct {
	Title       string    `json:"title"`
	Description []Segment `json:"description"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
}

// HasCode reports whether the content carries a code block that should be
// rendered. Both the code and its language must be present.
func (c *Content) HasCode() bool {
	return c != nil && c.Code != "" && c.Language != ""
}

// Clone returns a deep copy so callers can archive content without sharing
// the description slice.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := *c
	if c.Description != nil {
		out.Description = make([]Segment, len(c.Description))
		copy(out.Description, c.Description)
	}
	return &out
}
