package api

// SignalKind enumerates the playback controls the gateway forwards to
// the caster.
type SignalKind int

const (
	SignalPlay SignalKind = iota
	SignalPause
	SignalStop
	SignalSeek
	SignalBegin
)

func (k SignalKind) String() string {
	switch k {
	case SignalPlay:
		return "Play"
	case SignalPause:
		return "Pause"
	case SignalStop:
		return "Stop"
	case SignalSeek:
		return "Seek"
	case SignalBegin:
		return "Begin"
	}
	return "Unknown"
}

// Signal is a stateless playback control value. Seconds is only
// meaningful for SignalSeek, Index only for SignalBegin.
type Signal struct {
	Kind    SignalKind
	Seconds float64
	Index   uint32
}

type requestKind int

const (
	requestControl requestKind = iota
	requestSelectDevice
	requestDiscover
	requestCast
	requestClose
	requestStatus
	requestDevices
)

// Request is one typed command for the gateway serve loop. Replies are
// delivered through the single-use reply channel; a caller that walks
// away before the reply lands simply never sees it, the gateway does
// not block on delivery.
type Request struct {
	kind      requestKind
	signal    Signal
	addr      string
	mediaPort int
	reply     chan<- string
}

// NewControl builds a playback control request.
func NewControl(sig Signal, reply chan<- string) Request {
	return Request{kind: requestControl, signal: sig, reply: reply}
}

// NewSelectDevice builds a device selection request.
func NewSelectDevice(addr string, reply chan<- string) Request {
	return Request{kind: requestSelectDevice, addr: addr, reply: reply}
}

// NewDiscover builds a discovery request.
func NewDiscover(reply chan<- string) Request {
	return Request{kind: requestDiscover, reply: reply}
}

// NewCast builds a session start request against the given media port.
func NewCast(mediaPort int, reply chan<- string) Request {
	return Request{kind: requestCast, mediaPort: mediaPort, reply: reply}
}

// NewClose builds a session teardown request.
func NewClose(reply chan<- string) Request {
	return Request{kind: requestClose, reply: reply}
}

// NewStatus builds a playback status query.
func NewStatus(reply chan<- string) Request {
	return Request{kind: requestStatus, reply: reply}
}

// NewDevices builds a cached device list query.
func NewDevices(reply chan<- string) Request {
	return Request{kind: requestDevices, reply: reply}
}
