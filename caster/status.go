package caster

import (
	"encoding/json"
	"sync"

	"github.com/castdeck/castdeck/castprotocol"
)

// Playback states reported by the media receiver.
const (
	StatePlaying   = "PLAYING"
	StatePaused    = "PAUSED"
	StateBuffering = "BUFFERING"
	StateIdle      = "IDLE"
)

// MediaStatus is a snapshot of the device playback state. An inactive
// status means the receiver has no media session; a disconnected status
// means the session connection died and the snapshot is stale.
type MediaStatus struct {
	Active       bool
	Disconnected bool
	PlayerState  string
	CurrentTime  float64
	// VideoLength is the total duration in seconds, 0 when unknown.
	VideoLength float64
}

// MarshalJSON renders the status for the control gateway. Inactive and
// disconnected snapshots carry only the playbackState field; an active
// snapshot omits videoLength while the duration is unknown.
func (s MediaStatus) MarshalJSON() ([]byte, error) {
	if !s.Active {
		state := "Inactive"
		if s.Disconnected {
			state = "Disconnected"
		}
		return json.Marshal(struct {
			PlaybackState string `json:"playbackState"`
		}{PlaybackState: state})
	}

	out := struct {
		PlaybackState string   `json:"playbackState"`
		CurrentTime   float64  `json:"currentTime"`
		VideoLength   *float64 `json:"videoLength,omitempty"`
	}{
		PlaybackState: s.PlayerState,
		CurrentTime:   s.CurrentTime,
	}
	if s.VideoLength > 0 {
		length := s.VideoLength
		out.VideoLength = &length
	}

	return json.Marshal(out)
}

// statusCell holds the shared playback snapshot. The status loop is the
// only writer; readers always get a copy, never a live reference.
type statusCell struct {
	mu     sync.Mutex
	status MediaStatus
}

func (c *statusCell) get() MediaStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *statusCell) setActive(entry castprotocol.MediaSession) {
	c.mu.Lock()
	c.status = MediaStatus{
		Active:      true,
		PlayerState: entry.PlayerState,
		CurrentTime: entry.CurrentTime,
		VideoLength: entry.Media.Duration,
	}
	c.mu.Unlock()
}

func (c *statusCell) setInactive() {
	c.mu.Lock()
	c.status = MediaStatus{}
	c.mu.Unlock()
}

func (c *statusCell) setDisconnected() {
	c.mu.Lock()
	c.status = MediaStatus{Disconnected: true}
	c.mu.Unlock()
}
