package remux

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

type ffprobeInfo struct {
	Streams []Stream `json:"streams"`
}

// Stream is one media stream as reported by ffprobe.
type Stream struct {
	Tags      any    `json:"tags,omitempty"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Index     int    `json:"index"`
}

// StreamTags are the free-form ffprobe stream tags we care about.
type StreamTags struct {
	Title    string `mapstructure:"title"`
	Language string `mapstructure:"language"`
}

// DecodedTags maps a stream's loose tag object onto StreamTags.
func (s Stream) DecodedTags() (StreamTags, error) {
	var out StreamTags
	if s.Tags == nil {
		return out, nil
	}
	if err := mapstructure.Decode(s.Tags, &out); err != nil {
		return out, errors.Wrap(err, "remux: stream tags")
	}
	return out, nil
}

// Description renders a one-line summary of the stream, like
// "#1 audio aac (Commentary, eng)". Undecodable tags are left out.
func (s Stream) Description() string {
	out := fmt.Sprintf("#%d %s %s", s.Index, s.CodecType, s.CodecName)

	tags, err := s.DecodedTags()
	if err != nil {
		return out
	}

	var extra []string
	if tags.Title != "" {
		extra = append(extra, tags.Title)
	}
	if tags.Language != "" {
		extra = append(extra, tags.Language)
	}
	if len(extra) > 0 {
		out += " (" + strings.Join(extra, ", ") + ")"
	}
	return out
}

// Streams probes f and returns its media streams. The ffprobe path is
// assumed to live next to the ffmpeg one.
func Streams(ffmpeg string, f string) ([]Stream, error) {
	_, err := os.Stat(f)
	if err != nil {
		return nil, err
	}

	// We assume the ffprobe path based on the ffmpeg one.
	// So we need to ensure that the ffmpeg one exists.
	if err := CheckFFmpeg(ffmpeg); err != nil {
		return nil, err
	}

	cmd := exec.Command(
		filepath.Join(filepath.Dir(ffmpeg), "ffprobe"),
		"-loglevel", "error",
		"-show_streams",
		"-of", "json",
		f,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var info ffprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, err
	}

	return info.Streams, nil
}
