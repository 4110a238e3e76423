package remux

// Codec pairs (video, audio) the default media receiver can play
// without transcoding. Pairs not listed here are always incompatible;
// listed ones still depend on the device generation.
var validCodecPairs = [][2]string{
	{"h264", "mp3"},
	{"h264", "aac"},
	{"hevc", "mp3"},
	{"hevc", "aac"},
	{"vp8", "vorbis"},
	{"vp9", "vorbis"},
}

// CastCompatible reports whether a video/audio codec pair (ffprobe
// codec names) can be stream-copied for the cast device.
func CastCompatible(video, audio string) bool {
	for _, pair := range validCodecPairs {
		if pair[0] == video && pair[1] == audio {
			return true
		}
	}
	return false
}

// MediaCompatible probes f and reports whether its first video and
// audio streams form a cast-compatible pair. Files without an audio
// stream are judged on the video codec alone.
func MediaCompatible(ffmpeg string, f string) (bool, error) {
	streams, err := Streams(ffmpeg, f)
	if err != nil {
		return false, err
	}
	return CompatibleStreams(streams), nil
}

// CompatibleStreams reports whether the first video and audio streams
// of an already probed file form a cast-compatible pair.
func CompatibleStreams(streams []Stream) bool {
	var video, audio string
	for _, s := range streams {
		switch s.CodecType {
		case "video":
			if video == "" {
				video = s.CodecName
			}
		case "audio":
			if audio == "" {
				audio = s.CodecName
			}
		}
	}

	if video == "" {
		return false
	}
	if audio == "" {
		for _, pair := range validCodecPairs {
			if pair[0] == video {
				return true
			}
		}
		return false
	}

	return CastCompatible(video, audio)
}
