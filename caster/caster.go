package caster

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/castdeck/castdeck/castprotocol"
	"github.com/castdeck/castdeck/devices"
	"github.com/castdeck/castdeck/internal/utils"
)

const (
	// First status poll is delayed so the device can finish loading the
	// media before we ask; later polls keep a remote progress display
	// fresh.
	defaultFirstStatusInterval = 5000 * time.Millisecond
	defaultStatusInterval      = 500 * time.Millisecond

	// Upper bound for one blocking receive. Short enough that the loop
	// re-checks the shutdown signal and the poll clock between quiet
	// stretches on the wire.
	defaultReceiveBound = 250 * time.Millisecond
)

// Caster owns the cast session: the selected device, the persistent
// device connection held by the status loop and the shared status cell.
// Command calls open their own short-lived connections and never touch
// the loop's connection.
type Caster struct {
	mu         sync.Mutex
	deviceAddr string
	discovered []devices.Device
	shutdown   chan struct{}
	loopDone   chan struct{}
	closing    bool

	status statusCell

	// Injection points for tests.
	newConn func() castprotocol.Conn
	localIP func() (string, error)

	firstStatusInterval time.Duration
	statusInterval      time.Duration
	receiveBound        time.Duration

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// New returns an idle Caster reporting an inactive status.
func New() *Caster {
	return &Caster{
		newConn:             castprotocol.NewConn,
		localIP:             utils.LocalIP,
		firstStatusInterval: defaultFirstStatusInterval,
		statusInterval:      defaultStatusInterval,
		receiveBound:        defaultReceiveBound,
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *Caster) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// Discover scans the network and caches the result for SelectDevice.
func (c *Caster) Discover(timeout time.Duration) ([]devices.Device, error) {
	found, err := devices.Discover(timeout, *c.Log())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.discovered = found
	c.mu.Unlock()

	return c.Devices(), nil
}

// Devices returns a copy of the last discovery result.
func (c *Caster) Devices() []devices.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]devices.Device, len(c.discovered))
	copy(out, c.discovered)
	return out
}

// SelectDevice picks the cast target by address. The address must be a
// member of the last discovery result. Idempotent for a valid address.
func (c *Caster) SelectDevice(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range c.discovered {
		if d.Addr == addr {
			c.deviceAddr = addr
			c.Log().Info().Str("Method", "SelectDevice").Str("Addr", addr).Str("Name", d.Name).Msg("device selected")
			return nil
		}
	}

	return ErrDeviceNotFound
}

// Status returns a copy of the current playback snapshot.
func (c *Caster) Status() MediaStatus {
	return c.status.get()
}

// Streaming reports whether a status loop is currently running.
func (c *Caster) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown != nil
}

// Begin opens the session: connect to the selected device, launch the
// default media receiver, load http://{localIP}:{mediaPort} and start the
// status loop. Exactly one loop may run at a time; Begin refuses while
// one is active. Any handshake failure closes the connection and returns
// without leaving a goroutine behind.
func (c *Caster) Begin(mediaPort int) error {
	c.mu.Lock()
	addr := c.deviceAddr
	active := c.shutdown != nil
	c.mu.Unlock()

	if addr == "" {
		return ErrNoDeviceSelected
	}
	if active {
		return ErrSessionActive
	}

	conn := c.newConn()
	if err := conn.Start(addr, castprotocol.DefaultPort); err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	req := castprotocol.NewRequester(conn)
	req.Logger = *c.Log()

	app, err := c.beginHandshake(req, mediaPort)
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	if c.shutdown != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrSessionActive
	}
	shutdown := make(chan struct{})
	done := make(chan struct{})
	c.shutdown = shutdown
	c.loopDone = done
	c.mu.Unlock()

	go c.statusLoop(req, app.TransportID, shutdown, done)

	c.Log().Info().Str("Method", "Begin").Str("Addr", addr).Str("Transport", app.TransportID).Msg("session started")
	return nil
}

func (c *Caster) beginHandshake(req *castprotocol.Requester, mediaPort int) (castprotocol.ApplicationSession, error) {
	var none castprotocol.ApplicationSession

	if err := req.ConnectDefault(); err != nil {
		return none, fmt.Errorf("handshake: %w", err)
	}

	app, err := req.Launch(castprotocol.DefaultReceiverAppID)
	if err != nil {
		return none, fmt.Errorf("launch receiver: %w", err)
	}
	c.Log().Info().Str("Method", "Begin").Str("Transport", app.TransportID).Str("Session", app.SessionID).Msg("media receiver launched")

	if err := req.ConnectTransport(app.TransportID); err != nil {
		return none, fmt.Errorf("connect transport: %w", err)
	}

	ip, err := c.localIP()
	if err != nil {
		return none, fmt.Errorf("resolve local ip: %w", err)
	}

	contentURL := "http://" + net.JoinHostPort(ip, strconv.Itoa(mediaPort))
	if err := req.Load(app.TransportID, contentURL, "video/mp4"); err != nil {
		return none, fmt.Errorf("load media: %w", err)
	}
	c.Log().Info().Str("Method", "Begin").Str("URL", contentURL).Msg("media loaded")

	return app, nil
}

// Close tears the session down: a best-effort Stop when streaming, then
// the shutdown signal for the status loop. Idempotent; a no-op when idle.
// May block until the loop's in-flight bounded receive returns.
func (c *Caster) Close() {
	c.mu.Lock()
	if c.shutdown == nil || c.closing {
		c.mu.Unlock()
		return
	}
	// The handles stay set until the loop has joined so that Begin keeps
	// refusing for the whole teardown window.
	c.closing = true
	shutdown := c.shutdown
	done := c.loopDone
	c.mu.Unlock()

	if err := c.Stop(); err != nil {
		c.Log().Warn().Str("Method", "Close").Err(err).Msg("best-effort stop failed")
	}

	close(shutdown)
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.shutdown = nil
	c.loopDone = nil
	c.closing = false
	c.mu.Unlock()
	c.Log().Info().Str("Method", "Close").Msg("session closed")
}

// statusLoop keeps the device link alive and refreshes the status cell.
// It owns the session connection exclusively and is the only writer of
// the cell. It exits on the shutdown signal or on connection loss, in
// which case the cell is flagged disconnected instead of unwinding.
func (c *Caster) statusLoop(req *castprotocol.Requester, transportID string, shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = req.Conn().Close() }()

	recvBound := time.NewTimer(c.receiveBound)
	defer recvBound.Stop()

	lastPoll := time.Now()
	interval := c.firstStatusInterval
	pendingPoll := 0

	for {
		select {
		case <-shutdown:
			return
		default:
		}

		if !recvBound.Stop() {
			select {
			case <-recvBound.C:
			default:
			}
		}
		recvBound.Reset(c.receiveBound)

		select {
		case <-shutdown:
			return
		case msg, ok := <-req.Conn().MsgChan():
			if !ok {
				c.Log().Warn().Str("Method", "statusLoop").Msg("connection lost, marking status disconnected")
				c.status.setDisconnected()
				return
			}

			switch {
			case req.HandlePing(msg):
				// pong already sent
			default:
				resp, isMedia := castprotocol.ParseMediaStatus(msg)
				if !isMedia {
					c.Log().Debug().Str("Method", "statusLoop").Str("Namespace", msg.GetNamespace()).Msg("device message")
					break
				}

				isPollReply := pendingPoll != 0 && resp.RequestId == pendingPoll
				if isPollReply {
					pendingPoll = 0
				}

				if len(resp.Status) > 0 {
					c.status.setActive(resp.Status[0])
				} else if isPollReply {
					// Only an explicit poll coming back empty means the
					// session is gone; pushed empty statuses are noise.
					c.status.setInactive()
				}
			}
		case <-recvBound.C:
		}

		if time.Since(lastPoll) >= interval {
			interval = c.statusInterval
			id, err := req.RequestMediaStatus(transportID)
			if err != nil {
				c.Log().Error().Str("Method", "statusLoop").Err(err).Msg("status fetch failed, retrying next interval")
			} else {
				pendingPoll = id
			}
			lastPoll = time.Now()
		}
	}
}
