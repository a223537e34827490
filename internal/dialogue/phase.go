package dialogue

import "fmt"

// Phase is the stage of a dialogue, derived from the session step.
type Phase int

const (
	PhaseIntro    Phase = iota // welcome, ask for the user's name
	PhaseGreeting              // greet by name, first piece of content
	PhaseOverview              // discuss the article body
	PhaseCode                  // introduce the code example
	PhaseOpen                  // free discussion of whatever the user asks
)

// PhaseFor maps a step to its phase. Negative steps are the intro and every
// step past the code phase is open discussion.
func PhaseFor(step int) Phase {
	switch {
	case step <= 0:
		return PhaseIntro
	case step >= int(PhaseOpen):
		return PhaseOpen
	default:
		return Phase(step)
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhaseGreeting:
		return "greeting"
	case PhaseOverview:
		return "overview"
	case PhaseCode:
		return "code"
	case PhaseOpen:
		return "open"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}
