package caster

import "github.com/pkg/errors"

var (
	// ErrNoDeviceSelected - a session call was made before SelectDevice.
	ErrNoDeviceSelected = errors.New("caster: no device selected")
	// ErrDeviceNotFound - the address is not in the last discovery result.
	ErrDeviceNotFound = errors.New("caster: device not found in last discovery")
	// ErrNoActiveMedia - the device has no running media session.
	ErrNoActiveMedia = errors.New("caster: no active media session")
	// ErrSessionActive - Begin was called while a status loop is running.
	ErrSessionActive = errors.New("caster: session already active")
	// ErrNotSupported - the operation is accepted by the API surface but
	// has no implementation yet.
	ErrNotSupported = errors.New("caster: not supported")
)
