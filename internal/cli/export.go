package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apresai/duet/internal/assembly"
)

var (
	flagExportDir    string
	flagExportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Stitch a session's saved audio into one MP3 (requires ffmpeg)",
	Long: `Export concatenates the per-line MP3s saved for a session, in the order
they were spoken, with a short pause between lines.

Audio is read from --dir, or from artifacts.dir in the config when --dir is
not set. Lines are saved there by the server when artifacts are enabled with
the local sink, or by "duet chat --save-audio".`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportDir, "dir", "", "Directory holding the saved audio")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Output file (default: <session-id>.mp3)")
}

func runExport(cmd *cobra.Command, args []string) error {
	id := args[0]

	dir := flagExportDir
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir = cfg.Artifacts.Dir
	}
	output := flagExportOutput
	if output == "" {
		output = id + ".mp3"
	}

	segs, err := assembly.Collect(dir, id)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("session %s: %w in %s", id, assembly.ErrNoSegments, dir)
	}

	tmpDir, err := os.MkdirTemp("", "duet-export-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := assembly.NewFFmpegAssembler().Assemble(cmd.Context(), assembly.Paths(segs), tmpDir, output); err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d lines)\n", output, len(segs))
	return nil
}
