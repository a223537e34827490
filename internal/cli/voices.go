package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/duet/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices [provider]",
	Short: "List known voices for the primary and fallback TTS providers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVoices,
}

func runVoices(cmd *cobra.Command, args []string) error {
	providers := []struct {
		name  string
		label string
	}{
		{"elevenlabs", "ELEVENLABS (primary)"},
		{"google", "GOOGLE CLOUD TTS (fallback)"},
		{"polly", "AMAZON POLLY (fallback)"},
	}
	if len(args) == 1 {
		if _, err := tts.AvailableVoices(args[0]); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nAvailable voices:")

	for _, p := range providers {
		if len(args) == 1 && args[0] != p.name {
			continue
		}
		voices, err := tts.AvailableVoices(p.name)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n  %s\n", p.label)
		fmt.Fprintf(out, "  %s\n", strings.Repeat("─", 50))
		fmt.Fprintf(out, "  %-24s %-12s %-8s %s\n", "ID", "NAME", "GENDER", "DESCRIPTION")
		for _, v := range voices {
			def := ""
			if v.DefaultFor != "" {
				def = fmt.Sprintf(" (default %s)", v.DefaultFor)
			}
			fmt.Fprintf(out, "  %-24s %-12s %-8s %s%s\n", v.ID, v.Name, v.Gender, v.Description, def)
		}
	}
	fmt.Fprintln(out)
	return nil
}
