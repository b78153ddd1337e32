package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/gousb"

	"github.com/darkvision77/captppd/internal/capt/cancel"
	"github.com/darkvision77/captppd/internal/capt/config"
	"github.com/darkvision77/captppd/internal/capt/control"
	"github.com/darkvision77/captppd/internal/capt/logging"
	"github.com/darkvision77/captppd/internal/capt/reason"
	"github.com/darkvision77/captppd/internal/capt/usb"
)

// fakeTransport scripts one canned reply per Write call, mirroring the
// session package's own fake (duplicated here since usb.Transport adds
// Close to session.Transport's method set).
type fakeTransport struct {
	pending [][]byte
	readBuf bytes.Buffer
	closed  bool
}

func (f *fakeTransport) Write(b []byte) (int, error) {
	if len(f.pending) > 0 {
		f.readBuf.Write(f.pending[0])
		f.pending = f.pending[1:]
	}
	return len(b), nil
}

func (f *fakeTransport) Read(b []byte) (int, error) {
	if f.readBuf.Len() == 0 {
		return 0, io.EOF
	}
	return f.readBuf.Read(b)
}

func (f *fakeTransport) SetDeadline(time.Time) error { return nil }
func (f *fakeTransport) Close() error                { f.closed = true; return nil }

func ack(ok bool) []byte {
	if ok {
		return []byte{1}
	}
	return []byte{0}
}

// fakeEnumerator replays one slice of candidates per Enumerate() call,
// repeating the last slice once exhausted so a retry loop can run
// indefinitely in a test.
type fakeEnumerator struct {
	scans     [][]usb.Candidate
	callCount int
	deviceIDs map[gousb.ID]string
	transport *fakeTransport
	openErr   error
	closed    bool
}

func (f *fakeEnumerator) Enumerate() ([]usb.Candidate, error) {
	idx := f.callCount
	if idx >= len(f.scans) {
		idx = len(f.scans) - 1
	}
	f.callCount++
	return f.scans[idx], nil
}

func (f *fakeEnumerator) DeviceID(c usb.Candidate) (string, error) {
	return f.deviceIDs[c.ProductID], nil
}

func (f *fakeEnumerator) Open(usb.Candidate) (usb.Transport, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.transport, nil
}

func (f *fakeEnumerator) Close() error { f.closed = true; return nil }

func fastSettings() config.Settings {
	return config.Settings{
		PollIntervalSeconds:      0,
		RetryIntervalSeconds:     0,
		TransportTimeoutSeconds:  1,
		DiscoveryIntervalSeconds: 0,
	}
}

func captCandidate(productID gousb.ID, mfg, model, serial string) (usb.Candidate, string) {
	c := usb.Candidate{VendorID: 0x04a9, ProductID: productID, SerialNumber: serial}
	id := "MFG:" + mfg + ";MDL:" + model + ";CMD:CAPT;VER:1.0;"
	return c, id
}

func discardLogger() *logging.Logger {
	return logging.New(&bytes.Buffer{}, logging.DEBUG)
}

func TestDiscoverReportsOnlyCaptPrinters(t *testing.T) {
	t.Parallel()

	capt, captID := captCandidate(1, "Canon", "LBP3000", "SN1")
	other := usb.Candidate{VendorID: 0x04a9, ProductID: 2, SerialNumber: "SN2"}
	otherID := "MFG:Other;MDL:X;CMD:PCL;VER:5;"

	enum := &fakeEnumerator{
		scans: [][]usb.Candidate{{capt, other}},
		deviceIDs: map[gousb.ID]string{
			1: captID,
			2: otherID,
		},
	}
	o := New(enum, discardLogger(), fastSettings())

	var out bytes.Buffer
	if err := o.Discover(&out); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one report line, got %v", lines)
	}
	if !strings.Contains(lines[0], "LBP3000") || !strings.Contains(lines[0], "capt://") {
		t.Errorf("unexpected report line: %q", lines[0])
	}
}

func TestRunLocatesDeviceImmediatelyAndPrintsEmptyJob(t *testing.T) {
	t.Parallel()

	capt, captID := captCandidate(1, "Canon", "LBP3000", "SN1")
	tr := &fakeTransport{pending: [][]byte{
		ack(true), // reserve unit
		ack(true), // go offline
		ack(true), // release unit
	}}
	enum := &fakeEnumerator{
		scans:     [][]usb.Candidate{{capt}},
		deviceIDs: map[gousb.ID]string{1: captID},
		transport: tr,
	}
	o := New(enum, discardLogger(), fastSettings())

	var stateOut bytes.Buffer
	reporter := reason.New(&stateOut)
	token := cancel.New(context.Background())

	targetURI := captURI("Canon", "LBP3000", "SN1")
	err := o.Run(token, Job{TargetURI: targetURI, Raster: bytes.NewReader(nil), Reporter: reporter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !tr.closed {
		t.Errorf("expected transport to be closed")
	}
}

func TestRunRetriesUntilDeviceAppears(t *testing.T) {
	t.Parallel()

	capt, captID := captCandidate(1, "Canon", "LBP3000", "SN1")
	tr := &fakeTransport{pending: [][]byte{
		ack(true), // reserve unit
		ack(true), // go offline
		ack(true), // release unit
	}}
	enum := &fakeEnumerator{
		scans: [][]usb.Candidate{
			{},
			{},
			{capt},
		},
		deviceIDs: map[gousb.ID]string{1: captID},
		transport: tr,
	}
	o := New(enum, discardLogger(), fastSettings())

	var stateOut bytes.Buffer
	reporter := reason.New(&stateOut)
	token := cancel.New(context.Background())

	targetURI := captURI("Canon", "LBP3000", "SN1")
	err := o.Run(token, Job{TargetURI: targetURI, Raster: bytes.NewReader(nil), Reporter: reporter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enum.callCount < 3 {
		t.Errorf("expected at least 3 enumerate calls, got %d", enum.callCount)
	}
	if !strings.Contains(stateOut.String(), "+connecting-to-device") {
		t.Errorf("expected a +connecting-to-device line, got %q", stateOut.String())
	}
	if !strings.Contains(stateOut.String(), "-connecting-to-device") {
		t.Errorf("expected a -connecting-to-device line, got %q", stateOut.String())
	}
}

func TestRunCancelledWhileWaitingForDeviceSucceedsQuietly(t *testing.T) {
	t.Parallel()

	enum := &fakeEnumerator{scans: [][]usb.Candidate{{}}}
	o := New(enum, discardLogger(), fastSettings())

	var stateOut bytes.Buffer
	reporter := reason.New(&stateOut)
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()
	token := cancel.New(ctx)

	err := o.Run(token, Job{TargetURI: "capt://Canon/LBP3000?drv=capt&serial=SN1", Reporter: reporter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunFailsWhenReserveUnitErrors(t *testing.T) {
	t.Parallel()

	capt, captID := captCandidate(1, "Canon", "LBP3000", "SN1")
	tr := &fakeTransport{} // no scripted reply -> ReserveUnit sees a short read
	enum := &fakeEnumerator{
		scans:     [][]usb.Candidate{{capt}},
		deviceIDs: map[gousb.ID]string{1: captID},
		transport: tr,
	}
	o := New(enum, discardLogger(), fastSettings())

	var stateOut bytes.Buffer
	reporter := reason.New(&stateOut)
	token := cancel.New(context.Background())

	targetURI := captURI("Canon", "LBP3000", "SN1")
	err := o.Run(token, Job{TargetURI: targetURI, Raster: bytes.NewReader(nil), Reporter: reporter})
	if err == nil {
		t.Fatal("expected an error when ReserveUnit fails")
	}
	if !tr.closed {
		t.Errorf("expected transport to be closed even on failure")
	}
}

func TestRunWrapsOpenFailureAsErrDeviceNotFound(t *testing.T) {
	t.Parallel()

	capt, captID := captCandidate(1, "Canon", "LBP3000", "SN1")
	enum := &fakeEnumerator{
		scans:     [][]usb.Candidate{{capt}},
		deviceIDs: map[gousb.ID]string{1: captID},
		openErr:   errors.New("libusb: no such device"),
	}
	o := New(enum, discardLogger(), fastSettings())

	reporter := reason.New(&bytes.Buffer{})
	token := cancel.New(context.Background())

	targetURI := captURI("Canon", "LBP3000", "SN1")
	err := o.Run(token, Job{TargetURI: targetURI, Raster: bytes.NewReader(nil), Reporter: reporter})
	if !errors.Is(err, control.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestOrchestratorCloseReleasesEnumerator(t *testing.T) {
	t.Parallel()
	enum := &fakeEnumerator{}
	o := New(enum, discardLogger(), fastSettings())
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !enum.closed {
		t.Errorf("expected Close to release the enumerator")
	}
}

func captURI(mfg, model, serial string) string {
	return "capt://" + mfg + "/" + model + "?drv=capt&serial=" + serial
}

