package api

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/castdeck/castdeck/caster"
	"github.com/castdeck/castdeck/devices"
)

const (
	defaultQueueSize       = 1024
	defaultDiscoverTimeout = 5 * time.Second

	replyOK = "ok"
)

// CastController is the slice of the caster the gateway drives.
type CastController interface {
	Discover(timeout time.Duration) ([]devices.Device, error)
	Devices() []devices.Device
	SelectDevice(addr string) error
	Begin(mediaPort int) error
	BeginIndex(index uint32) error
	Close()
	Resume() error
	Pause() error
	Stop() error
	Seek(seconds float64) error
	Status() caster.MediaStatus
}

// Gateway serializes external control requests onto one caster. All
// session mutations flow through the serve loop; only it touches the
// caster, so HTTP handlers never race each other on session state.
type Gateway struct {
	caster          CastController
	requests        chan Request
	mediaPort       int
	discoverTimeout time.Duration
	Logger          zerolog.Logger
	LogOutput       io.Writer
	initLogOnce     sync.Once
}

// NewGateway wires a gateway to the given caster. mediaPort is the
// default port used by cast requests that do not name one.
func NewGateway(c CastController, mediaPort int) *Gateway {
	return &Gateway{
		caster:          c,
		requests:        make(chan Request, defaultQueueSize),
		mediaPort:       mediaPort,
		discoverTimeout: defaultDiscoverTimeout,
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (g *Gateway) Log() *zerolog.Logger {
	if g.LogOutput != nil {
		g.initLogOnce.Do(func() {
			g.Logger = zerolog.New(g.LogOutput).With().Timestamp().Logger()
		})
	}
	return &g.Logger
}

// Requests exposes the submission side of the request queue.
func (g *Gateway) Requests() chan<- Request {
	return g.requests
}

// Serve drains the request queue until ctx is cancelled. It closes the
// caster session on the way out.
func (g *Gateway) Serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			g.caster.Close()
			return
		case req := <-g.requests:
			g.handle(req)
		}
	}
}

func (g *Gateway) handle(req Request) {
	switch req.kind {
	case requestControl:
		g.Log().Info().Str("Method", "handle").Str("Signal", req.signal.Kind.String()).Msg("control signal")
		deliver(req.reply, errPayload(g.control(req.signal)))
	case requestSelectDevice:
		deliver(req.reply, errPayload(g.caster.SelectDevice(req.addr)))
	case requestDiscover:
		found, err := g.caster.Discover(g.discoverTimeout)
		if err != nil {
			g.Log().Error().Str("Method", "handle").Err(err).Msg("discovery failed")
			deliver(req.reply, mustJSON(map[string]string{"error": err.Error()}))
			return
		}
		deliver(req.reply, mustJSON(found))
	case requestCast:
		port := req.mediaPort
		if port == 0 {
			port = g.mediaPort
		}
		deliver(req.reply, errPayload(g.caster.Begin(port)))
	case requestClose:
		g.caster.Close()
		deliver(req.reply, replyOK)
	case requestStatus:
		deliver(req.reply, mustJSON(g.caster.Status()))
	case requestDevices:
		deliver(req.reply, mustJSON(g.caster.Devices()))
	}
}

func (g *Gateway) control(sig Signal) error {
	switch sig.Kind {
	case SignalPlay:
		return g.caster.Resume()
	case SignalPause:
		return g.caster.Pause()
	case SignalStop:
		return g.caster.Stop()
	case SignalSeek:
		return g.caster.Seek(sig.Seconds)
	case SignalBegin:
		return g.caster.BeginIndex(sig.Index)
	}
	return nil
}

// deliver hands the payload to the reply channel without blocking. An
// abandoned or missing channel drops the reply silently.
func deliver(reply chan<- string, payload string) {
	if reply == nil {
		return
	}
	select {
	case reply <- payload:
	default:
	}
}

func errPayload(err error) string {
	if err != nil {
		return err.Error()
	}
	return replyOK
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return errPayload(err)
	}
	return string(raw)
}
