package castprotocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/cast"
	pb "github.com/vishen/go-chromecast/cast/proto"
)

var (
	// ErrRequestTimeout - the device did not answer a request in time.
	ErrRequestTimeout = errors.New("castprotocol: request timed out")
	// ErrConnClosed - the underlying connection receive channel was closed.
	ErrConnClosed = errors.New("castprotocol: connection closed")
	// ErrLoadFailed - the receiver rejected the content we asked it to play.
	ErrLoadFailed = errors.New("castprotocol: load failed")
	// ErrNoApplication - the receiver reported no usable application session.
	ErrNoApplication = errors.New("castprotocol: no application session")
	// ErrRequestRejected - the device refused a media command, usually
	// because the media session id it named is no longer current.
	ErrRequestRejected = errors.New("castprotocol: request rejected")
)

const defaultRequestTimeout = 5 * time.Second

// Requester drives request/reply exchanges on a single cast connection.
// It must only be used from one goroutine at a time; concurrent device
// access goes through separate connections, never a shared Requester.
type Requester struct {
	conn        Conn
	timeout     time.Duration
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// NewRequester wraps an established connection.
func NewRequester(conn Conn) *Requester {
	return &Requester{conn: conn, timeout: defaultRequestTimeout}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (r *Requester) Log() *zerolog.Logger {
	if r.LogOutput != nil {
		r.initLogOnce.Do(func() {
			r.Logger = zerolog.New(r.LogOutput).With().Timestamp().Logger()
		})
	}
	return &r.Logger
}

// Conn exposes the underlying connection.
func (r *Requester) Conn() Conn {
	return r.conn
}

// HandlePing answers a heartbeat PING in place and reports whether the
// message was one. The device drops the link if pings go unanswered.
func (r *Requester) HandlePing(msg *pb.CastMessage) bool {
	if msg.GetNamespace() != namespaceHeartbeat {
		return false
	}

	var hdr cast.PayloadHeader
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &hdr); err != nil {
		return false
	}

	if hdr.Type != "PING" {
		return false
	}

	pong := pongHeader()
	requestID := nextRequestID()
	pong.SetRequestId(requestID)
	if err := r.conn.Send(requestID, &pong, defaultSender, defaultReceiver, namespaceHeartbeat); err != nil {
		r.Log().Error().Str("Method", "HandlePing").Err(err).Msg("pong failed")
	}
	return true
}

// ParseMediaStatus decodes a MEDIA_STATUS message, if that is what msg is.
func ParseMediaStatus(msg *pb.CastMessage) (*MediaStatusResponse, bool) {
	if msg.GetNamespace() != namespaceMedia {
		return nil, false
	}

	var resp MediaStatusResponse
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &resp); err != nil {
		return nil, false
	}

	if resp.Type != "MEDIA_STATUS" {
		return nil, false
	}
	return &resp, true
}

func (r *Requester) send(payload cast.Payload, destinationID, namespace string) (int, error) {
	requestID := nextRequestID()
	payload.SetRequestId(requestID)
	if err := r.conn.Send(requestID, payload, defaultSender, destinationID, namespace); err != nil {
		return 0, fmt.Errorf("send to %s: %w", namespace, err)
	}
	return requestID, nil
}

// sendAndWait issues a request and blocks until the reply with the matching
// requestId arrives. Heartbeat pings that interleave with the reply are
// answered inline so the link stays alive during slow exchanges.
func (r *Requester) sendAndWait(payload cast.Payload, destinationID, namespace string) (*pb.CastMessage, error) {
	requestID, err := r.send(payload, destinationID, namespace)
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()

	for {
		select {
		case msg, ok := <-r.conn.MsgChan():
			if !ok {
				return nil, ErrConnClosed
			}
			if r.HandlePing(msg) {
				continue
			}

			var hdr cast.PayloadHeader
			if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &hdr); err != nil {
				r.Log().Debug().Str("Method", "sendAndWait").Err(err).Msg("unparsable message, skipping")
				continue
			}
			if hdr.RequestId != requestID {
				continue
			}
			return msg, nil
		case <-deadline.C:
			return nil, ErrRequestTimeout
		}
	}
}

// ConnectDefault performs the virtual-connection handshake with the
// platform receiver. Required before any receiver namespace request.
func (r *Requester) ConnectDefault() error {
	hdr := connectHeader()
	_, err := r.send(&hdr, defaultReceiver, namespaceConn)
	return err
}

// ConnectTransport opens a virtual connection to a running application so
// media namespace requests can be routed to it.
func (r *Requester) ConnectTransport(transportID string) error {
	hdr := connectHeader()
	_, err := r.send(&hdr, transportID, namespaceConn)
	return err
}

// CloseDefault tears down the virtual connection. Best effort.
func (r *Requester) CloseDefault() error {
	hdr := closeHeader()
	_, err := r.send(&hdr, defaultReceiver, namespaceConn)
	return err
}

// ReceiverStatus fetches the current receiver application list.
func (r *Requester) ReceiverStatus() (*ReceiverStatusResponse, error) {
	hdr := getStatusHeader()
	msg, err := r.sendAndWait(&hdr, defaultReceiver, namespaceReceiver)
	if err != nil {
		return nil, err
	}

	var resp ReceiverStatusResponse
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &resp); err != nil {
		return nil, fmt.Errorf("receiver status unmarshal: %w", err)
	}
	return &resp, nil
}

// Launch starts appID on the device and returns its application session.
// Slow devices report the application before its transport is routable, so
// we re-poll the receiver status until a transport id shows up.
func (r *Requester) Launch(appID string) (ApplicationSession, error) {
	req := &LaunchRequest{PayloadHeader: cast.PayloadHeader{Type: "LAUNCH"}, AppID: appID}
	msg, err := r.sendAndWait(req, defaultReceiver, namespaceReceiver)
	if err != nil {
		return ApplicationSession{}, fmt.Errorf("launch %s: %w", appID, err)
	}

	var resp ReceiverStatusResponse
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &resp); err != nil {
		return ApplicationSession{}, fmt.Errorf("launch response unmarshal: %w", err)
	}

	if app, ok := findApplication(&resp, appID); ok {
		return app, nil
	}

	for i := range 8 {
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)

		status, err := r.ReceiverStatus()
		if err != nil {
			r.Log().Debug().Str("Method", "Launch").Int("Attempt", i+1).Err(err).Msg("status retry")
			continue
		}
		if app, ok := findApplication(status, appID); ok {
			return app, nil
		}
	}

	return ApplicationSession{}, ErrNoApplication
}

func findApplication(resp *ReceiverStatusResponse, appID string) (ApplicationSession, bool) {
	for _, app := range resp.Status.Applications {
		if app.AppID == appID && app.TransportID != "" {
			return app, true
		}
	}
	return ApplicationSession{}, false
}

// FirstRunningApplication returns the first non-idle application session.
func (resp *ReceiverStatusResponse) FirstRunningApplication() (ApplicationSession, bool) {
	for _, app := range resp.Status.Applications {
		if !app.IsIdleScreen && app.TransportID != "" {
			return app, true
		}
	}
	return ApplicationSession{}, false
}

// Load starts playback of contentURL on the application behind transportID.
func (r *Requester) Load(transportID, contentURL, contentType string) error {
	req := &LoadRequest{
		PayloadHeader: cast.PayloadHeader{Type: "LOAD"},
		Media: MediaItem{
			ContentID:   contentURL,
			ContentType: contentType,
			StreamType:  "BUFFERED",
		},
		Autoplay: true,
	}

	msg, err := r.sendAndWait(req, transportID, namespaceMedia)
	if err != nil {
		return fmt.Errorf("load %s: %w", contentURL, err)
	}

	var hdr cast.PayloadHeader
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &hdr); err == nil {
		if hdr.Type == "LOAD_FAILED" || hdr.Type == "LOAD_CANCELLED" {
			return ErrLoadFailed
		}
	}
	return nil
}

// MediaStatus fetches the media session list from the application behind
// transportID and blocks for the reply.
func (r *Requester) MediaStatus(transportID string) (*MediaStatusResponse, error) {
	hdr := getStatusHeader()
	msg, err := r.sendAndWait(&hdr, transportID, namespaceMedia)
	if err != nil {
		return nil, err
	}

	var resp MediaStatusResponse
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &resp); err != nil {
		return nil, fmt.Errorf("media status unmarshal: %w", err)
	}
	return &resp, nil
}

// RequestMediaStatus fires a GET_STATUS at the media namespace without
// waiting. The reply lands on MsgChan and carries the returned request id;
// the status loop consumes it as part of its normal receive step.
func (r *Requester) RequestMediaStatus(transportID string) (int, error) {
	hdr := getStatusHeader()
	return r.send(&hdr, transportID, namespaceMedia)
}

// Play resumes a paused media session.
func (r *Requester) Play(transportID string, mediaSessionID int) error {
	return r.mediaCommand("PLAY", transportID, mediaSessionID)
}

// Pause pauses a playing media session.
func (r *Requester) Pause(transportID string, mediaSessionID int) error {
	return r.mediaCommand("PAUSE", transportID, mediaSessionID)
}

// StopMedia stops the media session and returns the receiver to idle.
func (r *Requester) StopMedia(transportID string, mediaSessionID int) error {
	return r.mediaCommand("STOP", transportID, mediaSessionID)
}

// Seek jumps to an absolute position in seconds, keeping the current
// play/pause state. Blocks for the device's answer.
func (r *Requester) Seek(transportID string, mediaSessionID int, seconds float64) error {
	req := &SeekRequest{
		PayloadHeader:  cast.PayloadHeader{Type: "SEEK"},
		MediaSessionID: mediaSessionID,
		CurrentTime:    seconds,
	}
	msg, err := r.sendAndWait(req, transportID, namespaceMedia)
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return checkCommandReply(msg)
}

// mediaCommand issues a play-state change and blocks for the device's
// answer. A happy device acks with a MEDIA_STATUS; rejections come back
// as INVALID_REQUEST or ERROR under the same request id.
func (r *Requester) mediaCommand(kind, transportID string, mediaSessionID int) error {
	req := &MediaRequest{
		PayloadHeader:  cast.PayloadHeader{Type: kind},
		MediaSessionID: mediaSessionID,
	}
	msg, err := r.sendAndWait(req, transportID, namespaceMedia)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return checkCommandReply(msg)
}

func checkCommandReply(msg *pb.CastMessage) error {
	var hdr cast.PayloadHeader
	if err := json.Unmarshal([]byte(msg.GetPayloadUtf8()), &hdr); err != nil {
		return nil
	}
	if hdr.Type == "INVALID_REQUEST" || hdr.Type == "ERROR" {
		return ErrRequestRejected
	}
	return nil
}
