package servefiles

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mp4Header is a minimal ISO base media file header ("ftyp" box).
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70,
	0x69, 0x73, 0x6F, 0x6D, 0x00, 0x00, 0x02, 0x00,
}

func writeSample(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestContentTypeSniffsMP4(t *testing.T) {
	assertions := require.New(t)

	video := writeSample(t, "sample.bin", append(mp4Header, make([]byte, 512)...))
	assertions.Equal("video/mp4", ContentType(video))
}

func TestContentTypeFallsBack(t *testing.T) {
	assertions := require.New(t)

	video := writeSample(t, "sample.bin", []byte("definitely not a media container, move along"))
	assertions.Equal("video/mp4", ContentType(video))

	assertions.Equal("video/mp4", ContentType(filepath.Join(t.TempDir(), "missing.mp4")))
}

func TestServeMissingFile(t *testing.T) {
	assertions := require.New(t)

	srv := NewServer("127.0.0.1:0")
	started := make(chan struct{}, 1)
	err := srv.Serve(started, filepath.Join(t.TempDir(), "missing.mp4"))
	assertions.Error(err)
}

func TestServeVideoWithRanges(t *testing.T) {
	assertions := require.New(t)

	payload := append(append([]byte{}, mp4Header...), []byte("0123456789abcdef")...)
	video := writeSample(t, "sample.mp4", payload)

	srv := NewServer("127.0.0.1:0")
	started := make(chan struct{}, 1)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(started, video)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("media server did not start")
	}
	defer srv.Stop()
	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/")
	assertions.NoError(err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	assertions.NoError(err)
	assertions.Equal(http.StatusOK, resp.StatusCode)
	assertions.Equal("video/mp4", resp.Header.Get("Content-Type"))
	assertions.Equal(payload, body)

	// The cast device pulls content with range requests.
	req, err := http.NewRequest(http.MethodGet, base+"/sample.mp4", nil)
	assertions.NoError(err)
	req.Header.Set("Range", "bytes=16-19")
	resp, err = http.DefaultClient.Do(req)
	assertions.NoError(err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	assertions.NoError(err)
	assertions.Equal(http.StatusPartialContent, resp.StatusCode)
	assertions.Equal([]byte("0123"), body)

	srv.Stop()
	assertions.NoError(<-serveErr)
}
