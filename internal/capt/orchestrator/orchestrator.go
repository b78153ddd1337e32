// Package orchestrator ties usb enumeration, device-id matching, a
// PrinterSession and the PrintController into the end-to-end lifecycle
// cmd/captbackend runs once per invocation: discover devices, locate the
// target by URI, reserve the unit, dispatch the requested job, then release
// (spec.md §4.6).
//
// Grounded on original_source/captbackend/main.cpp's reportDevices/
// findPrinterByUri/open-claim-reserve/dispatch/release sequence, redesigned
// per spec.md §4.6 step 3: where main.cpp fails
// immediately when the target URI isn't found, this retries on a fixed
// cadence under the reason "connecting-to-device" until the device appears
// or the job is cancelled.
package orchestrator

import (
	"fmt"
	"io"
	"time"

	"github.com/darkvision77/captppd/internal/capt/cancel"
	"github.com/darkvision77/captppd/internal/capt/config"
	"github.com/darkvision77/captppd/internal/capt/control"
	"github.com/darkvision77/captppd/internal/capt/device"
	"github.com/darkvision77/captppd/internal/capt/logging"
	"github.com/darkvision77/captppd/internal/capt/raster"
	"github.com/darkvision77/captppd/internal/capt/reason"
	"github.com/darkvision77/captppd/internal/capt/session"
	"github.com/darkvision77/captppd/internal/capt/usb"
)

// Orchestrator owns the USB enumerator for the lifetime of one invocation.
type Orchestrator struct {
	enumerator usb.Enumerator
	logger     *logging.Logger
	settings   config.Settings
}

// New returns an Orchestrator. Callers must Close it when done.
func New(enumerator usb.Enumerator, logger *logging.Logger, settings config.Settings) *Orchestrator {
	return &Orchestrator{enumerator: enumerator, logger: logger, settings: settings}
}

// Close releases the underlying USB context.
func (o *Orchestrator) Close() error {
	return o.enumerator.Close()
}

func (o *Orchestrator) discoveryInterval() time.Duration {
	return time.Duration(o.settings.DiscoveryIntervalSeconds) * time.Second
}

func (o *Orchestrator) transportTimeout() time.Duration {
	return time.Duration(o.settings.TransportTimeoutSeconds) * time.Second
}

// candidateInfo fetches and parses the IEEE-1284 device id for one
// candidate, skipping (rather than failing the whole scan) any device that
// refuses the GET_DEVICE_ID request, matching main.cpp's getPrinterInfo.
func (o *Orchestrator) candidateInfo(c usb.Candidate) (device.PrinterInfo, bool) {
	id, err := o.enumerator.DeviceID(c)
	if err != nil {
		o.logger.Debug("failed to read device id, skipping", "vendor", fmt.Sprintf("%04x", c.VendorID), "product", fmt.Sprintf("%04x", c.ProductID), "err", err)
		return device.PrinterInfo{}, false
	}
	return device.Parse(id, c.SerialNumber), true
}

// Discover enumerates attached devices once and writes one CUPS discovery
// report line (spec.md §6.3) per recognised CAPT v1 printer to w.
func (o *Orchestrator) Discover(w io.Writer) error {
	candidates, err := o.enumerator.Enumerate()
	if err != nil {
		return fmt.Errorf("enumerate usb devices: %w", err)
	}
	o.logger.Debug("discovered candidate devices", "count", len(candidates))

	for _, c := range candidates {
		info, ok := o.candidateInfo(c)
		if !ok {
			continue
		}
		if !info.IsCaptPrinter() {
			o.logger.Debug("skipping non-CAPT v1 printer", "device-id", info.DeviceID)
			continue
		}
		fmt.Fprintln(w, info.String())
	}
	return nil
}

// locate repeatedly scans for the URI-matching device, reporting
// connecting-to-device while it waits (spec.md §4.6 step 3). found is false
// only when cancellation was observed before a match — a benign outcome the
// caller treats as a quiet success, never as DeviceNotFound.
func (o *Orchestrator) locate(token cancel.Token, targetURI string, reporter *reason.Reporter) (c usb.Candidate, found bool, err error) {
	waiting := false
	clearWaiting := func() {
		if waiting {
			reporter.SetReason(reason.ConnectingToDevice, false)
		}
	}

	for {
		candidates, err := o.enumerator.Enumerate()
		if err != nil {
			clearWaiting()
			return usb.Candidate{}, false, fmt.Errorf("enumerate usb devices: %w", err)
		}

		for _, cand := range candidates {
			info, ok := o.candidateInfo(cand)
			if !ok || !info.IsCaptPrinter() {
				continue
			}
			if info.HasURI(targetURI) {
				clearWaiting()
				return cand, true, nil
			}
		}

		if token.Requested() {
			clearWaiting()
			return usb.Candidate{}, false, nil
		}

		reporter.SetReason(reason.ConnectingToDevice, true)
		waiting = true
		if !token.Sleep(o.discoveryInterval()) {
			clearWaiting()
			return usb.Candidate{}, false, nil
		}
	}
}

// Job is one dispatch: print a raster stream, or run the clean command.
type Job struct {
	// TargetURI selects the device (spec.md §6.2 DEVICE_URI).
	TargetURI string
	// Raster is the job's raster-format content; nil for a clean command.
	Raster io.Reader
	// Reporter receives STATE:/PAGE: lines for this job (spec.md §4.2, §6.4).
	Reporter *reason.Reporter
}

// Run locates the target device, reserves it, dispatches the job, then
// releases the unit, mirroring main.cpp's open/claim/reserve ... go_offline/
// release_unit sequence. A nil error covers both success and clean
// cancellation (spec.md §6.5); a non-nil error is an unrecoverable failure.
func (o *Orchestrator) Run(token cancel.Token, job Job) error {
	candidate, found, err := o.locate(token, job.TargetURI, job.Reporter)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	transport, err := o.enumerator.Open(candidate)
	if err != nil {
		return fmt.Errorf("%w: %v", control.ErrDeviceNotFound, err)
	}
	defer transport.Close()

	sess := session.New(transport, job.Reporter, o.transportTimeout())
	if err := sess.ReserveUnit(); err != nil {
		return fmt.Errorf("reserve unit: %w", err)
	}
	o.logger.Info("unit reserved")

	ctrl := control.New(sess, job.Reporter, o.settings)

	var jobErr error
	if job.Raster != nil {
		_, jobErr = ctrl.Print(token, raster.NewSource(job.Raster))
	} else {
		jobErr = ctrl.Clean(token)
	}

	if err := sess.GoOffline(); err != nil {
		o.logger.Warn("go offline failed", "err", err)
	}
	if err := sess.ReleaseUnit(); err != nil {
		o.logger.Warn("release unit failed", "err", err)
	} else {
		o.logger.Info("unit released")
	}

	return jobErr
}
