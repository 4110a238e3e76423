package servefiles

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
)

const fallbackContentType = "video/mp4"

// Server hosts a single local video file for the cast device to pull.
// The device fetches the content with range requests, so everything
// goes through http.ServeContent.
type Server struct {
	http *http.Server
	mux  *http.ServeMux
	ln   net.Listener
}

// NewServer - create a new media server bound to addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	return &Server{
		http: &http.Server{Addr: addr, Handler: mux},
		mux:  mux,
	}
}

// Serve - start the media server for videoPath. It signals started once
// the listener is up, then blocks until Stop is called. The file is
// reachable both at / and at its base name.
func (s *Server) Serve(started chan<- struct{}, videoPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("media server: %w", err)
	}

	handler := serveVideoHandler(videoPath)
	s.mux.HandleFunc("/", handler)
	s.mux.HandleFunc("/"+filepath.Base(videoPath), handler)

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("media server listen error: %w", err)
	}
	s.ln = ln

	started <- struct{}{}
	if err := s.http.Serve(ln); err != http.ErrServerClosed {
		return fmt.Errorf("media server error: %w", err)
	}
	return nil
}

// Stop - kill the media server.
func (s *Server) Stop() {
	s.http.Close()
}

// Addr returns the bound listener address, valid after Serve signals
// started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.http.Addr
	}
	return s.ln.Addr().String()
}

func serveVideoHandler(video string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		f, err := os.Open(video)
		if err != nil {
			http.NotFound(w, req)
			return
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			http.NotFound(w, req)
			return
		}

		w.Header().Set("Content-Type", ContentType(video))
		http.ServeContent(w, req, filepath.Base(video), stat.ModTime(), f)
	}
}

// ContentType sniffs the container type from the file header. Anything
// unrecognized is reported as video/mp4, which the default media
// receiver accepts for probing.
func ContentType(videoPath string) string {
	f, err := os.Open(videoPath)
	if err != nil {
		return fallbackContentType
	}
	defer f.Close()

	head := make([]byte, 261)
	if _, err := f.Read(head); err != nil {
		return fallbackContentType
	}

	kind, err := filetype.Match(head)
	if err != nil || kind.MIME.Type == "" {
		return fallbackContentType
	}

	return fmt.Sprintf("%s/%s", kind.MIME.Type, kind.MIME.Subtype)
}
