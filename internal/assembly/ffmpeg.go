// Package assembly stitches the per-line MP3 artifacts of one session into a
// single episode file with FFmpeg.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/apresai/duet/internal/dialogue"
)

// Audio quality constants for consistent output across all FFmpeg operations.
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
	AudioCodec      = "libmp3lame"
	AudioQuality    = "0" // LAME quality (0 = best)
	AudioResampler  = "aresample=resampler=soxr"
)

// ErrNoSegments is returned when a session has no saved audio.
var ErrNoSegments = errors.New("no audio segments to assemble")

type Assembler interface {
	Assemble(ctx context.Context, segments []string, tmpDir string, output string) error
}

type FFmpegAssembler struct {
	Bin string // ffmpeg binary, looked up on PATH when empty
}

func NewFFmpegAssembler() *FFmpegAssembler {
	return &FFmpegAssembler{Bin: "ffmpeg"}
}

// Segment is one saved line of a session.
type Segment struct {
	Step    int
	Speaker string
	Path    string
}

// Collect finds the artifacts {sessionID}-{step}-{speaker}.mp3 in dir and
// orders them as they were spoken: by step, Mike before Miley. Files whose
// step or speaker cannot be parsed are skipped.
func Collect(dir, sessionID string) ([]Segment, error) {
	prefix := sessionID + "-"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}

	var segs []Segment
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".mp3") {
			continue
		}
		rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".mp3")
		stepStr, speaker, ok := strings.Cut(rest, "-")
		if !ok {
			continue
		}
		step, err := strconv.Atoi(stepStr)
		if err != nil || speakerOrder(speaker) < 0 {
			continue
		}
		segs = append(segs, Segment{Step: step, Speaker: speaker, Path: filepath.Join(dir, name)})
	}

	sort.Slice(segs, func(i, j int) bool {
		if segs[i].Step != segs[j].Step {
			return segs[i].Step < segs[j].Step
		}
		return speakerOrder(segs[i].Speaker) < speakerOrder(segs[j].Speaker)
	})
	return segs, nil
}

func speakerOrder(name string) int {
	switch name {
	case dialogue.Mike.Name:
		return 0
	case dialogue.Miley.Name:
		return 1
	}
	return -1
}

// Paths returns the file of each segment in order.
func Paths(segs []Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Path
	}
	return out
}

func (a *FFmpegAssembler) Assemble(ctx context.Context, segments []string, tmpDir string, output string) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}
	bin, err := exec.LookPath(a.bin())
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	// 200ms gap between lines
	silencePath := filepath.Join(tmpDir, "silence.mp3")
	if err := generateSilence(ctx, bin, silencePath); err != nil {
		return fmt.Errorf("generate silence: %w", err)
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	if err := buildConcatList(segments, silencePath, listPath); err != nil {
		return fmt.Errorf("build concat list: %w", err)
	}

	if err := runFFmpegConcat(ctx, bin, listPath, output); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

func (a *FFmpegAssembler) bin() string {
	if a.Bin == "" {
		return "ffmpeg"
	}
	return a.Bin
}

func generateSilence(ctx context.Context, bin, output string) error {
	return runFFmpeg(ctx, bin,
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%s:cl=stereo", AudioSampleRate),
		"-t", "0.2",
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-y",
		output,
	)
}

func buildConcatList(segments []string, silencePath string, listPath string) error {
	var lines []string
	for i, seg := range segments {
		lines = append(lines, concatEntry(seg))
		if i < len(segments)-1 {
			lines = append(lines, concatEntry(silencePath))
		}
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(listPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// concatEntry quotes path for the concat demuxer, where a single quote is
// written as '\''.
func concatEntry(path string) string {
	return "file '" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func runFFmpegConcat(ctx context.Context, bin, listPath string, output string) error {
	err := runFFmpeg(ctx, bin,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-af", AudioResampler,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-y",
		output,
	)
	if err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}

func runFFmpeg(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, stderr.String())
	}
	return nil
}
