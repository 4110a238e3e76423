package urldownloader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/h2non/filetype"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// ErrMediaTimeout - the downloaded stream never produced a recognizable
// media container header.
var ErrMediaTimeout = errors.New("urldownloader: timed out waiting for valid media")

const (
	downloadRetryMax      = 3
	downloadDialTimeout   = 5 * time.Second
	downloadKeepAlive     = 30 * time.Second
	mediaProbeInterval    = 200 * time.Millisecond
	mediaProbeDeadline    = 10 * time.Second
	mediaProbeHeaderBytes = 261
)

var downloadTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   downloadDialTimeout,
		KeepAlive: downloadKeepAlive,
	}).DialContext,
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{Transport: downloadTransport}

	return retryClient.StandardClient()
}

// TempMedia is a remote stream being spooled into a local temp file.
// The file stays open while the cast device reads it; call Close to
// release and delete it.
type TempMedia struct {
	F *os.File
}

// Download starts spooling url into a temp file and returns immediately.
// The download keeps running in the background until ctx is cancelled or
// the stream ends.
func Download(ctx context.Context, url string) (*TempMedia, error) {
	f, err := os.CreateTemp("", "castdeck-media*.dat")
	if err != nil {
		return nil, errors.Wrap(err, "urldownloader: temp file")
	}

	go func() {
		client := newRetryableHTTPClient(downloadRetryMax)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return
		}

		resp, err := client.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		io.Copy(f, resp.Body)
	}()

	return &TempMedia{F: f}, nil
}

// Close releases the file handle and deletes the spool file.
func (m *TempMedia) Close() {
	m.F.Close()
	os.Remove(m.F.Name())
}

// WaitForValidMedia blocks until the spool file grows a recognizable
// container header. Casting can start before the download completes,
// but not before the header landed.
func (m *TempMedia) WaitForValidMedia() error {
	return m.waitForValidMedia(mediaProbeInterval, mediaProbeDeadline)
}

func (m *TempMedia) waitForValidMedia(interval, limit time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(limit)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			ok, err := headerRecognized(m.F.Name())
			if err != nil {
				return fmt.Errorf("media probe failed: %w", err)
			}
			if ok {
				return nil
			}

		case <-deadline.C:
			return ErrMediaTimeout
		}
	}
}

func headerRecognized(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, mediaProbeHeaderBytes)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return false, err
	}

	return kind != filetype.Unknown, nil
}
