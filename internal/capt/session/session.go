// Package session implements PrinterSession: the framed CAPT operations
// layer between the wire protocol and the print controller (spec.md §4.3).
package session

import (
	"io"
	"time"

	"github.com/darkvision77/captppd/internal/capt/cancel"
	"github.com/darkvision77/captppd/internal/capt/protocol"
	"github.com/darkvision77/captppd/internal/capt/reason"
	"github.com/darkvision77/captppd/internal/capt/status"
)

// Transport is the injected bidirectional bulk byte stream to one printer
// (spec.md §1, §4.3). USB enumeration and bulk transfer are out of core
// scope; internal/capt/usb supplies the one real implementation.
type Transport interface {
	io.Reader
	io.Writer
	// SetDeadline bounds the next read or write; a zero time disables the
	// deadline. Every transport I/O in a Session call is wrapped with the
	// configured per-operation timeout (spec.md §5).
	SetDeadline(time.Time) error
}

// Session wraps a Transport with framed CAPT operations and fans status
// updates out to a reason.Reporter, matching
// original_source/captbackend/Core/CaptPrinter's GetStatus override.
type Session struct {
	transport Transport
	reporter  *reason.Reporter
	timeout   time.Duration
}

// New returns a Session. timeout bounds every individual transport I/O
// (spec.md §5 default 5s).
func New(transport Transport, reporter *reason.Reporter, timeout time.Duration) *Session {
	return &Session{transport: transport, reporter: reporter, timeout: timeout}
}

func (s *Session) deadline() time.Time {
	if s.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.timeout)
}

func (s *Session) write(b []byte) error {
	if err := s.transport.SetDeadline(s.deadline()); err != nil {
		return err
	}
	_, err := s.transport.Write(b)
	return err
}

func (s *Session) sendCommand(cmd protocol.Command, payload []byte) error {
	return s.write(protocol.EncodeFrame(cmd, payload))
}

func (s *Session) readAck() (bool, error) {
	if err := s.transport.SetDeadline(s.deadline()); err != nil {
		return false, err
	}
	return protocol.ReadAck(s.transport)
}

func (s *Session) readStatus() (status.Word, error) {
	if err := s.transport.SetDeadline(s.deadline()); err != nil {
		return status.Word{}, err
	}
	return protocol.ReadStatusReply(s.transport)
}

// ReserveUnit acquires exclusive use of the device's command channel.
func (s *Session) ReserveUnit() error {
	if err := s.sendCommand(protocol.CmdReserveUnit, nil); err != nil {
		return err
	}
	_, err := s.readAck()
	return err
}

// ReleaseUnit releases the exclusive reservation.
func (s *Session) ReleaseUnit() error {
	if err := s.sendCommand(protocol.CmdReleaseUnit, nil); err != nil {
		return err
	}
	_, err := s.readAck()
	return err
}

// GoOnline hands the device the next expected page slot. A false result
// means the device refused and the caller must retry after a delay
// (spec.md §4.3).
func (s *Session) GoOnline(pageNumber byte) (bool, error) {
	if err := s.sendCommand(protocol.CmdGoOnline, []byte{pageNumber}); err != nil {
		return false, err
	}
	return s.readAck()
}

// GoOffline is symmetric to GoOnline.
func (s *Session) GoOffline() error {
	if err := s.sendCommand(protocol.CmdGoOffline, nil); err != nil {
		return err
	}
	_, err := s.readAck()
	return err
}

// GetStatus issues a single status request and fans the result out to the
// reason reporter, matching CaptPrinter::GetStatus's side effect.
func (s *Session) GetStatus() (status.Word, error) {
	if err := s.sendCommand(protocol.CmdGetStatus, nil); err != nil {
		return status.Word{}, err
	}
	w, err := s.readStatus()
	if err != nil {
		return status.Word{}, err
	}
	if s.reporter != nil {
		s.reporter.Update(w)
	}
	return w, nil
}

// ClearError clears latched error bits and returns the refreshed status.
func (s *Session) ClearError() (status.Word, error) {
	if err := s.sendCommand(protocol.CmdClearError, nil); err != nil {
		return status.Word{}, err
	}
	return s.readStatus()
}

// WriteVideoData submits params then streams the page's compressed bytes.
// It returns true on clean completion, false if the device signalled an
// error mid-transfer — the caller then consults WaitPrintEnd (spec.md §4.3).
func (s *Session) WriteVideoData(token cancel.Token, params protocol.PageParams, data io.Reader) (bool, error) {
	if err := s.sendCommand(protocol.CmdStartPage, protocol.EncodePageParams(params)); err != nil {
		return false, err
	}
	ok, err := s.readAck()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	buf := make([]byte, 4096)
	for {
		if token.Requested() {
			return false, nil
		}
		n, rerr := data.Read(buf)
		if n > 0 {
			if err := s.sendCommand(protocol.CmdVideoData, buf[:n]); err != nil {
				return false, err
			}
			ack, err := s.readAck()
			if err != nil {
				return false, err
			}
			if !ack {
				return false, nil
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return false, rerr
		}
	}

	if err := s.sendCommand(protocol.CmdEndPage, nil); err != nil {
		return false, err
	}
	return s.readAck()
}

// WaitPrintEnd blocks until the device finishes printing (no longer
// printing, or error); it returns ok=false if cancellation was observed
// first (spec.md §4.3).
func (s *Session) WaitPrintEnd(token cancel.Token) (status.Word, bool, error) {
	for {
		if token.Requested() {
			return status.Word{}, false, nil
		}
		w, err := s.GetStatus()
		if err != nil {
			return status.Word{}, false, err
		}
		if !w.IsPrinting() || w.VideoDataError() || w.FatalError() || w.GetReprintStatus() != status.ReprintNone {
			return w, true, nil
		}
		if !token.Sleep(time.Second) {
			return status.Word{}, false, nil
		}
	}
}

// Cleaning issues the maintenance clean command.
func (s *Session) Cleaning() error {
	if err := s.sendCommand(protocol.CmdCleaning, nil); err != nil {
		return err
	}
	_, err := s.readAck()
	return err
}
