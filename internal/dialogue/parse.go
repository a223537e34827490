package dialogue

import "strings"

// Reply holds the two utterances extracted from a model response.
type Reply struct {
	Mike  string
	Miley string
}

// Missing lists the personas whose line was absent (or empty) in the reply.
func (r Reply) Missing() []string {
	var out []string
	if r.Mike == "" {
		out = append(out, Mike.Name)
	}
	if r.Miley == "" {
		out = append(out, Miley.Name)
	}
	return out
}

// ParseReply extracts the persona lines from raw model output. A line must
// start with the exact label followed by a colon; leading whitespace or a
// different case does not match. Other lines are ignored, order does not
// matter, and when a label repeats the last occurrence wins.
func ParseReply(raw string) Reply {
	var r Reply
	mikePrefix := Mike.Name + ":"
	mileyPrefix := Miley.Name + ":"
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, mikePrefix):
			r.Mike = strings.TrimSpace(line[len(mikePrefix):])
		case strings.HasPrefix(line, mileyPrefix):
			r.Miley = strings.TrimSpace(line[len(mileyPrefix):])
		}
	}
	return r
}
