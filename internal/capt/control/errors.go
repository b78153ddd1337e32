package control

import (
	"errors"
	"fmt"

	"github.com/darkvision77/captppd/internal/capt/protocol"
	"github.com/darkvision77/captppd/internal/capt/status"
)

// Sentinel error kinds (spec.md §7). Use errors.Is/errors.As against these,
// not string matching.
var (
	ErrTransport      = errors.New("transport error")
	ErrProtocolFault  = errors.New("protocol fault")
	ErrPageFailed     = errors.New("page write failed")
	ErrDeviceNotFound = errors.New("device not found")
	ErrRasterFormat   = errors.New("raster format error")
)

// DeviceFatalError wraps the status word observed when the device reports a
// fatal or video-data condition (spec.md §7 DeviceFatal / PageError).
type DeviceFatalError struct {
	Status status.Word
}

func (e *DeviceFatalError) Error() string {
	return fmt.Sprintf("device fatal: %s", status.Message(e.Status))
}

func (e *DeviceFatalError) Is(target error) bool {
	return target == ErrPageFailed
}

// wrapSessionErr tags an error returned from a session call with the
// sentinel its caller should match against: ErrProtocolFault for a malformed
// device reply, ErrTransport for everything else (I/O failures, timeouts).
func wrapSessionErr(err error) error {
	if err == nil {
		return nil
	}
	var faultErr *protocol.ProtocolFaultError
	if errors.As(err, &faultErr) {
		return fmt.Errorf("%w: %v", ErrProtocolFault, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// wrapRasterErr tags an error reading or validating the incoming raster
// stream with ErrRasterFormat.
func wrapRasterErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRasterFormat, err)
}
