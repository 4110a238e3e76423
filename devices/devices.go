package devices

import (
	"github.com/pkg/errors"
)

var (
	// ErrDiscovery - every discovery transport failed, nothing was scanned.
	ErrDiscovery = errors.New("devices: discovery transport failure")
)

// UnknownName is used when a device's description document cannot be
// fetched or parsed. The address is still castable without a label.
const UnknownName = "Unknown"

// Device is one discovered cast target. Immutable once returned.
type Device struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
}
