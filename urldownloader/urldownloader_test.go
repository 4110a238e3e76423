package urldownloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70,
	0x69, 0x73, 0x6F, 0x6D, 0x00, 0x00, 0x02, 0x00,
}

func TestDownloadAndWaitForValidMedia(t *testing.T) {
	assertions := require.New(t)

	payload := append(append([]byte{}, mp4Header...), make([]byte, 1024)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	media, err := Download(ctx, srv.URL)
	assertions.NoError(err)
	defer media.Close()

	assertions.NoError(media.WaitForValidMedia())

	// The spool file should eventually hold the full payload.
	assertions.Eventually(func() bool {
		data, err := os.ReadFile(media.F.Name())
		return err == nil && len(data) == len(payload)
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWaitForValidMediaTimesOut(t *testing.T) {
	assertions := require.New(t)

	f, err := os.CreateTemp(t.TempDir(), "media*.dat")
	assertions.NoError(err)
	_, err = f.WriteString("plain text, not a media container")
	assertions.NoError(err)

	media := &TempMedia{F: f}
	defer media.Close()

	assertions.ErrorIs(media.waitForValidMedia(10*time.Millisecond, 200*time.Millisecond), ErrMediaTimeout)
}

func TestCloseRemovesSpoolFile(t *testing.T) {
	assertions := require.New(t)

	f, err := os.CreateTemp(t.TempDir(), "media*.dat")
	assertions.NoError(err)

	media := &TempMedia{F: f}
	media.Close()

	_, err = os.Stat(f.Name())
	assertions.True(os.IsNotExist(err))
}
