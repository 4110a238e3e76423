package castprotocol

import (
	"sync/atomic"

	"github.com/vishen/go-chromecast/cast"
	pb "github.com/vishen/go-chromecast/cast/proto"
)

const (
	// DefaultPort is the control channel port every cast device listens on.
	DefaultPort = 8009

	// DefaultReceiverAppID is the stock media receiver application.
	// https://gist.github.com/jloutsenhizer/8855258
	DefaultReceiverAppID = "CC1AD845"

	defaultSender   = "sender-0"
	defaultReceiver = "receiver-0"

	namespaceConn      = "urn:x-cast:com.google.cast.tp.connection"
	namespaceHeartbeat = "urn:x-cast:com.google.cast.tp.heartbeat"
	namespaceReceiver  = "urn:x-cast:com.google.cast.receiver"
	namespaceMedia     = "urn:x-cast:com.google.cast.media"
)

// Conn is the subset of the cast connection we rely on. The production
// implementation is cast.Connection from go-chromecast; tests substitute a
// channel-driven fake.
type Conn interface {
	Start(addr string, port int) error
	Close() error
	Send(requestID int, payload cast.Payload, sourceID, destinationID, namespace string) error
	MsgChan() chan *pb.CastMessage
}

var _ Conn = (*cast.Connection)(nil)

// NewConn returns a real TLS connection to a cast device.
func NewConn() Conn {
	return cast.NewConnection()
}

// Request ID counter for cast messages. Every request on any connection
// gets a process-unique id so replies can never be cross-matched.
var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}
