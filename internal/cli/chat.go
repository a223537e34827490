package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/duet/internal/api"
	"github.com/apresai/duet/internal/article"
	"github.com/apresai/duet/internal/artifact"
	"github.com/apresai/duet/internal/chatui"
	"github.com/apresai/duet/internal/dialogue"
	"github.com/apresai/duet/internal/ingest"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk with Mike and Miley through a running server",
	Long: `Starts an interactive conversation. Each line you type is sent as one turn.
With --article the article is revealed a little more on every turn: title
first, then the first paragraph, then the full text, then the code.

Commands: /quit to leave, /reset to start a new session.`,
	RunE: runChat,
}

var (
	flagChatSession  string
	flagChatUser     string
	flagChatTopic    string
	flagChatArticle  string
	flagChatAudioDir string
	flagChatMike     string
	flagChatMiley    string
)

func init() {
	chatCmd.Flags().StringVar(&flagChatSession, "session", "", "Resume an existing session ID")
	chatCmd.Flags().StringVarP(&flagChatUser, "user", "u", "", "Your name")
	chatCmd.Flags().StringVarP(&flagChatTopic, "topic", "t", "", "Conversation topic")
	chatCmd.Flags().StringVarP(&flagChatArticle, "article", "a", "", "Article to discuss (URL, PDF path, or text/Markdown file)")
	chatCmd.Flags().StringVar(&flagChatAudioDir, "save-audio", "", "Directory to save each turn's MP3s")
	chatCmd.Flags().StringVar(&flagChatMike, "mike-voice", "", "ElevenLabs voice ID for Mike")
	chatCmd.Flags().StringVar(&flagChatMiley, "miley-voice", "", "ElevenLabs voice ID for Miley")
}

// chatSession is the client-side state of one conversation.
type chatSession struct {
	client  *api.Client
	ui      *chatui.Renderer
	audio   *artifact.Local
	article *article.Content
	id      string
	step    int
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ui := chatui.NewRenderer(os.Stdout)

	cs := &chatSession{
		client: api.NewClient(flagServer, nil),
		ui:     ui,
		id:     flagChatSession,
	}

	if flagChatArticle != "" {
		ui.Waiting("Reading article...")
		doc, err := ingest.Ingest(ctx, flagChatArticle)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", flagChatArticle, err)
		}
		cs.article = &doc.Article
		ui.Info("Loaded %q (%d words, %d segments, code: %t)", doc.Article.Title, doc.WordCount, len(doc.Article.Description), doc.Article.HasCode())
	}

	if flagChatAudioDir != "" {
		local, err := artifact.NewLocal(flagChatAudioDir)
		if err != nil {
			return err
		}
		cs.audio = local
	}

	if cs.id != "" {
		sess, err := cs.client.Session(ctx, cs.id)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", cs.id, err)
		}
		cs.step = sess.Step
		ui.Info("Resuming session %s at step %d", sess.ID, sess.Step)
	}

	// The first turn needs no input: the hosts open the show.
	if cs.id == "" {
		cs.turn(ctx, "")
	}
	return cs.loop(ctx, os.Stdin, cmd.OutOrStdout())
}

func (cs *chatSession) loop(ctx context.Context, in io.Reader, prompt io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(prompt, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(prompt)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			if cs.id != "" {
				if err := cs.client.DeleteSession(ctx, cs.id); err != nil {
					cs.ui.Error(err)
					continue
				}
			}
			cs.id, cs.step = "", 0
			cs.ui.Info("Session reset")
			cs.turn(ctx, "")
			continue
		}

		cs.turn(ctx, line)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// turn sends one request and prints the reply. Errors are shown and the
// conversation continues.
func (cs *chatSession) turn(ctx context.Context, input string) {
	req := api.DiscussRequest{
		UserName:     flagChatUser,
		UserInput:    input,
		Topic:        flagChatTopic,
		MikeVoiceID:  flagChatMike,
		MileyVoiceID: flagChatMiley,
		SessionID:    cs.id,
	}
	if cs.article != nil {
		req.ArticleContent = article.Reveal(cs.article, cs.step)
	}

	cs.ui.Waiting("Mike and Miley are thinking...")
	resp, err := cs.client.Discuss(ctx, req)
	if err != nil {
		cs.ui.Error(err)
		return
	}

	step := cs.step
	cs.id = resp.SessionID
	cs.step++

	cs.ui.Turn(dialogue.Mike.Name, resp.AgentAMessage)
	cs.ui.Turn(dialogue.Miley.Name, resp.AgentBMessage)
	cs.ui.Phase(step)

	if cs.audio != nil {
		cs.saveAudio(ctx, step, dialogue.Mike, resp.AgentAVoice)
		cs.saveAudio(ctx, step, dialogue.Miley, resp.AgentBVoice)
	}
}

func (cs *chatSession) saveAudio(ctx context.Context, step int, p dialogue.Persona, encoded string) {
	if encoded == "" {
		return
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		cs.ui.Error(fmt.Errorf("decode %s audio: %w", p.Name, err))
		return
	}
	loc, err := cs.audio.Save(ctx, fmt.Sprintf("%s-%d-%s", cs.id, step, p.Name), data)
	if err != nil {
		cs.ui.Error(err)
		return
	}
	cs.ui.Info("Saved %s", loc)
}
