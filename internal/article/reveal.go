package article

// Reveal returns the part of c a client should send at step. The dialogue
// walks through an article in four stages:
//
//	0   title only
//	1   title and the first description segment
//	2   title and every description segment
//	3+  everything, including the code block
//
// The result is a fresh copy; c is never modified.
func Reveal(c *Content, step int) *Content {
	if c == nil {
		return nil
	}
	out := &Content{Title: c.Title}
	switch {
	case step <= 0:
	case step == 1:
		if len(c.Description) > 0 {
			out.Description = []Segment{c.Description[0]}
		}
	case step == 2:
		out.Description = append([]Segment(nil), c.Description...)
	default:
		out.Description = append([]Segment(nil), c.Description...)
		out.Code = c.Code
		out.Language = c.Language
	}
	return out
}
