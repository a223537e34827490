package dialogue

// Persona is one of the two fixed speakers of the dialogue.
type Persona struct {
	Name  string // Speaker label, also the reply line prefix
	Style string // How the persona behaves, used in docs and the CLI
}

var (
	Mike = Persona{
		Name:  "Mike",
		Style: "Leads the conversation: welcomes the user, introduces each part of the article and explains code at a high level.",
	}
	Miley = Persona{
		Name:  "Miley",
		Style: "Follows up on Mike: asks the user questions, adds complementary points and highlights interesting details.",
	}
)

// Turn is a single utterance in a session transcript.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}
