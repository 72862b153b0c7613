package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Converter transcodes episode files into Plex-friendly mp4 containers with
// a stereo AAC track and a surround AC3 track
type Converter struct {
	ffmpegPath  string
	ffprobePath string
	logger      *logrus.Logger
}

// NewConverter creates a converter using the ffmpeg binary at the given path.
// The matching ffprobe binary is expected alongside it.
func NewConverter(ffmpegPath string, logger *logrus.Logger) *Converter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := "ffprobe"
	if dir := filepath.Dir(ffmpegPath); dir != "." {
		ffprobePath = filepath.Join(dir, "ffprobe")
	}

	return &Converter{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

// Convert transcodes source into dest. Forced English subtitles, when
// present, are written next to dest as a sidecar .eng.forced.srt file.
func (c *Converter) Convert(ctx context.Context, source, dest string) error {
	info, err := Probe(ctx, c.ffprobePath, source)
	if err != nil {
		return err
	}
	if info.VideoStream == nil {
		return fmt.Errorf("no video stream in %s", filepath.Base(source))
	}
	if info.AudioStream == nil {
		return fmt.Errorf("no audio stream in %s", filepath.Base(source))
	}

	args := convertArgs(source, dest, info)
	c.logger.WithFields(logrus.Fields{
		"source": filepath.Base(source),
		"dest":   filepath.Base(dest),
	}).Info("Converting file")
	c.logger.WithField("args", strings.Join(args, " ")).Debug("ffmpeg invocation")

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLines(string(output), 5))
	}

	if info.ForcedSubtitle != nil {
		if err := c.extractForcedSubtitle(ctx, source, dest, info.ForcedSubtitle); err != nil {
			c.logger.WithError(err).Warn("Failed to extract forced subtitles")
		}
	}

	return nil
}

func convertArgs(source, dest string, info *FileInfo) []string {
	args := []string{
		"-hide_banner",
		"-y",
		"-i", source,
		"-map_metadata", "-1",
		"-map_chapters", "0",
	}

	videoSpec := fmt.Sprintf("0:%d", info.VideoStream.Index)
	args = append(args, "-map", videoSpec)
	if info.VideoStream.CodecName == "h264" {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-vf", "scale=-1:1080",
			"-crf", "17",
			"-preset", "medium")
	}

	audioSpec := fmt.Sprintf("0:%d", info.AudioStream.Index)
	args = append(args, "-map", audioSpec, "-map", audioSpec)

	// stereo AAC track for broad client compatibility
	if info.AudioStream.CodecName == "aac" && info.AudioStream.Channels <= 2 {
		args = append(args, "-c:a:0", "copy")
	} else {
		args = append(args, "-c:a:0", "aac", "-b:a:0", "160k")
		if info.AudioStream.Channels > 2 {
			args = append(args, "-ac:a:0", "2")
		}
	}

	// surround AC3 track preserving the original channel layout
	switch info.AudioStream.CodecName {
	case "ac3", "eac3":
		args = append(args, "-c:a:1", "copy")
	default:
		args = append(args, "-c:a:1", "ac3", "-b:a:1", "640k")
		if info.AudioStream.Channels > 6 {
			args = append(args, "-ac:a:1", "6")
		}
	}

	args = append(args,
		"-metadata:s:a:0", "language=eng",
		"-metadata:s:a:1", "language=eng",
		"-disposition:a:0", "default",
		"-disposition:a:1", "0")

	if info.SubtitleStream != nil {
		args = append(args,
			"-map", fmt.Sprintf("0:%d", info.SubtitleStream.Index),
			"-c:s", "mov_text",
			"-metadata:s:s:0", "language=eng")
	}

	return append(args, dest)
}

// extractForcedSubtitle writes the forced track as a sidecar srt so players
// can overlay it without burning it into the video
func (c *Converter) extractForcedSubtitle(ctx context.Context, source, dest string, forced *Stream) error {
	base := strings.TrimSuffix(dest, filepath.Ext(dest))
	sidecar := base + ".eng.forced.srt"

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-hide_banner",
		"-y",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", forced.Index),
		"-c:s", "srt",
		sidecar)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("subtitle extraction failed: %w: %s", err, lastLines(string(output), 5))
	}

	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
