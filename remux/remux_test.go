package remux

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemuxArgs(t *testing.T) {
	assertions := require.New(t)

	args := RemuxArgs("in.mkv", "out.mp4")
	assertions.Equal([]string{
		"-loglevel", "error",
		"-i", "in.mkv",
		"-map", "0",
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		"out.mp4",
	}, args)
}

func TestCastCompatible(t *testing.T) {
	cases := []struct {
		video string
		audio string
		want  bool
	}{
		{"h264", "aac", true},
		{"h264", "mp3", true},
		{"hevc", "aac", true},
		{"vp9", "vorbis", true},
		{"vp8", "vorbis", true},
		{"h264", "vorbis", false},
		{"vp9", "aac", false},
		{"mpeg2video", "mp3", false},
		{"", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.video+"_"+tc.audio, func(t *testing.T) {
			require.Equal(t, tc.want, CastCompatible(tc.video, tc.audio))
		})
	}
}

func TestStreamTagsDecode(t *testing.T) {
	assertions := require.New(t)

	raw := `{
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264"},
			{"index": 1, "codec_type": "audio", "codec_name": "aac",
			 "tags": {"title": "Main", "language": "eng", "encoder": "lavc"}}
		]
	}`

	var info ffprobeInfo
	assertions.NoError(json.Unmarshal([]byte(raw), &info))
	assertions.Len(info.Streams, 2)

	tags, err := info.Streams[0].DecodedTags()
	assertions.NoError(err)
	assertions.Empty(tags.Title)

	tags, err = info.Streams[1].DecodedTags()
	assertions.NoError(err)
	assertions.Equal("Main", tags.Title)
	assertions.Equal("eng", tags.Language)
}

func TestStreamDescription(t *testing.T) {
	assertions := require.New(t)

	plain := Stream{Index: 0, CodecType: "video", CodecName: "h264"}
	assertions.Equal("#0 video h264", plain.Description())

	tagged := Stream{
		Index:     1,
		CodecType: "audio",
		CodecName: "aac",
		Tags:      map[string]any{"title": "Commentary", "language": "eng"},
	}
	assertions.Equal("#1 audio aac (Commentary, eng)", tagged.Description())

	langOnly := Stream{
		Index:     2,
		CodecType: "audio",
		CodecName: "mp3",
		Tags:      map[string]any{"language": "jpn"},
	}
	assertions.Equal("#2 audio mp3 (jpn)", langOnly.Description())
}

func TestCompatibleStreams(t *testing.T) {
	cases := []struct {
		name    string
		streams []Stream
		want    bool
	}{
		{
			"h264_aac",
			[]Stream{
				{Index: 0, CodecType: "video", CodecName: "h264"},
				{Index: 1, CodecType: "audio", CodecName: "aac"},
			},
			true,
		},
		{
			"video_only",
			[]Stream{{Index: 0, CodecType: "video", CodecName: "hevc"}},
			true,
		},
		{
			"first_streams_decide",
			[]Stream{
				{Index: 0, CodecType: "video", CodecName: "h264"},
				{Index: 1, CodecType: "audio", CodecName: "dts"},
				{Index: 2, CodecType: "audio", CodecName: "aac"},
			},
			false,
		},
		{
			"audio_only",
			[]Stream{{Index: 0, CodecType: "audio", CodecName: "aac"}},
			false,
		},
		{"no_streams", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CompatibleStreams(tc.streams))
		})
	}
}
