package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Stream is a single media stream as reported by ffprobe
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Channels    int               `json:"channels"`
	Tags        map[string]string `json:"tags"`
	Disposition struct {
		Default int `json:"default"`
		Forced  int `json:"forced"`
	} `json:"disposition"`
}

// Language returns the stream's language tag, or empty when untagged
func (s Stream) Language() string {
	for key, value := range s.Tags {
		if strings.EqualFold(key, "language") {
			return strings.ToLower(value)
		}
	}
	return ""
}

type probeOutput struct {
	Streams []Stream `json:"streams"`
}

// FileInfo is the stream layout of a source file relevant to conversion
type FileInfo struct {
	VideoStream    *Stream
	AudioStream    *Stream
	SubtitleStream *Stream
	ForcedSubtitle *Stream
}

// Probe inspects a media file with ffprobe and selects the streams used for
// conversion: the first video stream, the default (or first English) audio
// stream, and English text subtitles, separating forced tracks.
func Probe(ctx context.Context, ffprobePath, source string) (*FileInfo, error) {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		source)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", filepath.Base(source), err)
	}

	var probed probeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return selectStreams(probed.Streams), nil
}

func selectStreams(streams []Stream) *FileInfo {
	info := &FileInfo{}

	for i := range streams {
		stream := &streams[i]
		switch stream.CodecType {
		case "video":
			if info.VideoStream == nil {
				info.VideoStream = stream
			}
		case "audio":
			info.AudioStream = preferredAudio(info.AudioStream, stream)
		case "subtitle":
			if stream.CodecName != "subrip" || stream.Language() != "eng" {
				continue
			}
			if stream.Disposition.Forced == 1 {
				if info.ForcedSubtitle == nil {
					info.ForcedSubtitle = stream
				}
			} else if info.SubtitleStream == nil {
				info.SubtitleStream = stream
			}
		}
	}

	return info
}

// preferredAudio ranks the default track above English tracks, and English
// tracks above whichever came first
func preferredAudio(current, candidate *Stream) *Stream {
	if current == nil {
		return candidate
	}
	if current.Disposition.Default == 1 {
		return current
	}
	if candidate.Disposition.Default == 1 {
		return candidate
	}
	if current.Language() != "eng" && candidate.Language() == "eng" {
		return candidate
	}
	return current
}
