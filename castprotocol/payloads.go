package castprotocol

import "github.com/vishen/go-chromecast/cast"

// Wire payloads we send. We keep our own types here instead of using the
// go-chromecast application layer so the session loop stays in control of
// every message on the connection.

func connectHeader() cast.PayloadHeader   { return cast.PayloadHeader{Type: "CONNECT"} }
func closeHeader() cast.PayloadHeader     { return cast.PayloadHeader{Type: "CLOSE"} }
func getStatusHeader() cast.PayloadHeader { return cast.PayloadHeader{Type: "GET_STATUS"} }
func pongHeader() cast.PayloadHeader      { return cast.PayloadHeader{Type: "PONG"} }

// LaunchRequest asks the receiver to start an application.
type LaunchRequest struct {
	cast.PayloadHeader
	AppID string `json:"appId"`
}

// LoadRequest starts playback of a content URL on a running media receiver.
type LoadRequest struct {
	cast.PayloadHeader
	Media       MediaItem `json:"media"`
	CurrentTime int       `json:"currentTime"`
	Autoplay    bool      `json:"autoplay"`
}

// MediaItem describes the content referenced by a LoadRequest.
type MediaItem struct {
	ContentID   string  `json:"contentId"`
	ContentType string  `json:"contentType"`
	StreamType  string  `json:"streamType"`
	Duration    float64 `json:"duration,omitempty"`
}

// MediaRequest addresses a command at an active media session.
type MediaRequest struct {
	cast.PayloadHeader
	MediaSessionID int `json:"mediaSessionId"`
}

// SeekRequest moves playback to an absolute position. No resumeState is
// sent so the device keeps its current play/pause state.
type SeekRequest struct {
	cast.PayloadHeader
	MediaSessionID int     `json:"mediaSessionId"`
	CurrentTime    float64 `json:"currentTime"`
}

// Responses we parse. Only the fields the session needs.

// ApplicationSession identifies a running receiver application instance.
type ApplicationSession struct {
	AppID        string `json:"appId"`
	DisplayName  string `json:"displayName"`
	IsIdleScreen bool   `json:"isIdleScreen"`
	SessionID    string `json:"sessionId"`
	TransportID  string `json:"transportId"`
}

// ReceiverStatusResponse is the RECEIVER_STATUS reply.
type ReceiverStatusResponse struct {
	cast.PayloadHeader
	Status struct {
		Applications []ApplicationSession `json:"applications"`
	} `json:"status"`
}

// MediaSession is one entry of a MEDIA_STATUS reply.
type MediaSession struct {
	MediaSessionID int     `json:"mediaSessionId"`
	PlayerState    string  `json:"playerState"`
	CurrentTime    float64 `json:"currentTime"`
	IdleReason     string  `json:"idleReason,omitempty"`
	Media          struct {
		ContentID   string  `json:"contentId"`
		ContentType string  `json:"contentType"`
		Duration    float64 `json:"duration,omitempty"`
	} `json:"media,omitempty"`
}

// MediaStatusResponse is the MEDIA_STATUS reply.
type MediaStatusResponse struct {
	cast.PayloadHeader
	Status []MediaSession `json:"status"`
}
