package caster

import (
	"fmt"

	"github.com/castdeck/castdeck/castprotocol"
)

// Command calls are independent of the status loop: each one opens its
// own short-lived connection, looks the transport and media session ids
// up freshly (the device may have rotated them) and closes the
// connection on every exit path. When the device has no media session
// the call fails before anything is sent on the wire.

// Resume resumes playback on the device if it is paused.
func (c *Caster) Resume() error {
	return c.withMediaSession("Resume", func(req *castprotocol.Requester, transportID string, mediaSessionID int) error {
		return req.Play(transportID, mediaSessionID)
	})
}

// Pause pauses playback on the device if it is playing.
func (c *Caster) Pause() error {
	return c.withMediaSession("Pause", func(req *castprotocol.Requester, transportID string, mediaSessionID int) error {
		return req.Pause(transportID, mediaSessionID)
	})
}

// Stop stops playback and returns the receiver to its splash screen.
func (c *Caster) Stop() error {
	return c.withMediaSession("Stop", func(req *castprotocol.Requester, transportID string, mediaSessionID int) error {
		return req.StopMedia(transportID, mediaSessionID)
	})
}

// Seek moves playback to an absolute position in seconds. The device
// keeps its current play/pause state.
func (c *Caster) Seek(seconds float64) error {
	return c.withMediaSession("Seek", func(req *castprotocol.Requester, transportID string, mediaSessionID int) error {
		return req.Seek(transportID, mediaSessionID, seconds)
	})
}

// BeginIndex would start casting the library entry at the given index.
// Not yet supported; the API surface accepts it so remote controllers
// get a clear reply instead of a silent drop.
func (c *Caster) BeginIndex(index uint32) error {
	return ErrNotSupported
}

func (c *Caster) withMediaSession(method string, fn func(req *castprotocol.Requester, transportID string, mediaSessionID int) error) error {
	c.mu.Lock()
	addr := c.deviceAddr
	c.mu.Unlock()

	if addr == "" {
		return ErrNoDeviceSelected
	}

	conn := c.newConn()
	if err := conn.Start(addr, castprotocol.DefaultPort); err != nil {
		return fmt.Errorf("%s connect %s: %w", method, addr, err)
	}

	req := castprotocol.NewRequester(conn)
	req.Logger = *c.Log()
	defer func() {
		// Tell the receiver the virtual connection is going away before
		// dropping the socket. Best effort.
		_ = req.CloseDefault()
		_ = conn.Close()
	}()

	if err := req.ConnectDefault(); err != nil {
		return fmt.Errorf("%s handshake: %w", method, err)
	}

	status, err := req.ReceiverStatus()
	if err != nil {
		return fmt.Errorf("%s receiver status: %w", method, err)
	}

	app, ok := status.FirstRunningApplication()
	if !ok {
		return ErrNoActiveMedia
	}

	if err := req.ConnectTransport(app.TransportID); err != nil {
		return fmt.Errorf("%s connect transport: %w", method, err)
	}

	media, err := req.MediaStatus(app.TransportID)
	if err != nil {
		return fmt.Errorf("%s media status: %w", method, err)
	}

	if len(media.Status) == 0 {
		return ErrNoActiveMedia
	}

	if err := fn(req, app.TransportID, media.Status[0].MediaSessionID); err != nil {
		return fmt.Errorf("%s command: %w", method, err)
	}

	c.Log().Debug().Str("Method", method).Str("Transport", app.TransportID).Int("MediaSession", media.Status[0].MediaSessionID).Msg("command sent")
	return nil
}
