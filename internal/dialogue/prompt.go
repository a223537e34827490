package dialogue

import (
	"fmt"
	"strings"

	"github.com/apresai/duet/internal/article"
)

// HistoryWindow is how many trailing turns are quoted back to the model.
const HistoryWindow = 6

// PromptInput is everything a phase template can draw on.
type PromptInput struct {
	History  []Turn
	Topic    string
	UserName string
	Step     int
	Article  *article.Content
}

// LatestInput is the text of the last turn, or "" for an empty history.
func (in PromptInput) LatestInput() string {
	if len(in.History) == 0 {
		return ""
	}
	return in.History[len(in.History)-1].Text
}

func (in PromptInput) historyText() string {
	h := in.History
	if len(h) > HistoryWindow {
		h = h[len(h)-HistoryWindow:]
	}
	lines := make([]string, len(h))
	for i, t := range h {
		lines[i] = t.Speaker + ": " + t.Text
	}
	return strings.Join(lines, "\n")
}

type template func(in PromptInput, articleText string) string

// One builder per phase. Phases are fixed; there is no way to register more.
var templates = map[Phase]template{
	PhaseIntro: func(in PromptInput, articleText string) string {
		return fmt.Sprintf(`Start a conversation with a user about %s.

Article information to discuss:
%s

Generate exactly two responses:
1. %s's response (1-2 sentences): A friendly welcome and introduction to the topic title
2. %s's response (1-2 sentences): A friendly follow-up that asks the user for their name
%s`, in.Topic, articleText, Mike.Name, Miley.Name, replyShape())
	},
	PhaseGreeting: func(in PromptInput, articleText string) string {
		return fmt.Sprintf(`Continue this conversation about %s. The user has just provided their name: %s.

Article information to discuss:
%s

Previous messages:
%s

Generate exactly two responses:
1. %s's response (1-2 sentences): Greet the user by name and mention the first piece of article content
2. %s's response (1-2 sentences): Add to %s's point or ask a question about the user's interest in the topic
%s`, in.Topic, in.UserName, articleText, in.historyText(), Mike.Name, Miley.Name, Mike.Name, replyShape())
	},
	PhaseOverview: func(in PromptInput, articleText string) string {
		return continuation(in, articleText, "Generate exactly two responses:",
			"Comment on the article overview section",
			"Ask the user if they're familiar with the topic")
	},
	PhaseCode: func(in PromptInput, articleText string) string {
		return continuation(in, articleText, "Generate exactly two responses:",
			"Introduce the code example and explain what it does at a high level",
			"Point out a specific interesting part of the code")
	},
	PhaseOpen: func(in PromptInput, articleText string) string {
		return continuation(in, articleText, "Generate exactly two responses that directly address the user's input:",
			"Provide insight or explanation about the code or article",
			"Add a complementary point or ask a follow-up question")
	},
}

// continuation is the shared shape of the phases that quote the user's
// latest input.
func continuation(in PromptInput, articleText, lead, mikeTask, mileyTask string) string {
	return fmt.Sprintf(`Continue this conversation with %s about %s.

Article information to discuss:
%s

Previous messages:
%s

User's latest input: %s

%s
1. %s's response (1-2 sentences): %s
2. %s's response (1-2 sentences): %s
%s`, in.UserName, in.Topic, articleText, in.historyText(), in.LatestInput(),
		lead, Mike.Name, mikeTask, Miley.Name, mileyTask, replyShape())
}

func replyShape() string {
	return fmt.Sprintf("\nFormat exactly like:\n%s: [message]\n%s: [message]\n", Mike.Name, Miley.Name)
}

// BuildPrompt renders the prompt for the phase of in.Step. The article is
// formatted with the same step so its progress note matches the phase.
func BuildPrompt(in PromptInput) string {
	return templates[PhaseFor(in.Step)](in, article.Format(in.Article, in.Step))
}
