// Package control implements PrintController: the per-job state machine that
// drives a single CAPT session through reservation, per-page transmission,
// reprint recovery, and the clean/maintenance command (spec.md §4.4, §4.5).
//
// Grounded on original_source/captbackend/Core/CaptPrinter.cpp's WaitReady,
// PrepareBeforePrint, WritePage, WaitLastPage, Print and Clean methods.
package control

import (
	"time"

	"github.com/darkvision77/captppd/internal/capt/cancel"
	"github.com/darkvision77/captppd/internal/capt/config"
	"github.com/darkvision77/captppd/internal/capt/protocol"
	"github.com/darkvision77/captppd/internal/capt/reason"
	"github.com/darkvision77/captppd/internal/capt/session"
	"github.com/darkvision77/captppd/internal/capt/status"
)

// reprintSafetyBound caps the number of consecutive not-ready/reprint
// iterations waitLastPage will tolerate before giving up. spec.md leaves this
// as an Open Question; SPEC_FULL.md §9 decides 200 (a few minutes at the 1s
// poll interval), matching no known device behavior but preventing a wedged
// printer from hanging the backend forever.
const reprintSafetyBound = 200

// Controller drives one print job or maintenance command over a Session.
type Controller struct {
	session  *session.Session
	reporter *reason.Reporter
	settings config.Settings
}

// New returns a Controller. settings supplies the poll/retry cadence;
// pass config.Default() when no operator override was loaded.
func New(s *session.Session, reporter *reason.Reporter, settings config.Settings) *Controller {
	return &Controller{session: s, reporter: reporter, settings: settings}
}

func (c *Controller) pollInterval() time.Duration {
	return time.Duration(c.settings.PollIntervalSeconds) * time.Second
}

func (c *Controller) retryInterval() time.Duration {
	return time.Duration(c.settings.RetryIntervalSeconds) * time.Second
}

// waitReady polls GetStatus, clearing latched errors as they appear, until
// the device reports Ready or cancellation is observed (spec.md §4.4).
func (c *Controller) waitReady(token cancel.Token) (status.Word, error) {
	for {
		w, err := c.session.GetStatus()
		if err != nil {
			return status.Word{}, wrapSessionErr(err)
		}
		if w.ClearErrorNeeded() {
			if w, err = c.session.ClearError(); err != nil {
				return status.Word{}, wrapSessionErr(err)
			}
		}
		if w.Ready() {
			return w, nil
		}
		if token.Requested() {
			return w, nil
		}
		if !token.Sleep(c.pollInterval()) {
			return w, nil
		}
	}
}

// prepareBeforePrint waits for readiness then reserves pageNumber's slot,
// retrying a device refusal after retryInterval (spec.md §4.4).
func (c *Controller) prepareBeforePrint(token cancel.Token, pageNumber byte) error {
	for {
		w, err := c.waitReady(token)
		if err != nil {
			return err
		}
		if token.Requested() {
			return nil
		}
		if w.Online() && w.Start == pageNumber {
			return nil
		}
		ok, err := c.session.GoOnline(pageNumber)
		if err != nil {
			return wrapSessionErr(err)
		}
		if ok {
			return nil
		}
		if !token.Sleep(c.retryInterval()) {
			return nil
		}
	}
}

// writePage implements the S0 Prepare / S1 Transmit / S2 Inspect / S3 Decide
// loop for a single page slot. previous may be nil; it is only consulted
// when the device has latched a reprint-previous request. The *protocol.
// BufferedPage actually transmitted (current or previous) is returned so the
// caller can track it as the new "previous" on success.
func (c *Controller) writePage(token cancel.Token, current, previous *protocol.BufferedPage) (Outcome, *protocol.BufferedPage, error) {
	pending := current
	reprint := status.ReprintNone

	for {
		if token.Requested() {
			return OutcomeCancelled, pending, nil
		}

		target := current
		if reprint == status.ReprintPrev && previous != nil {
			target = previous
		}
		pending = target
		target.Rewind()

		if err := c.prepareBeforePrint(token, byte(target.PageNumber)); err != nil {
			return OutcomeFailed, pending, err
		}
		if token.Requested() {
			return OutcomeCancelled, pending, nil
		}

		ok, err := c.session.WriteVideoData(token, target.Params, target)
		if err != nil {
			return OutcomeFailed, pending, wrapSessionErr(err)
		}
		if ok {
			if target == previous {
				// The device asked for the previous page again; resubmit
				// current next time around instead of reporting success.
				reprint = status.ReprintNone
				continue
			}
			return OutcomeSucceeded, pending, nil
		}

		w, sawEnd, err := c.session.WaitPrintEnd(token)
		if err != nil {
			return OutcomeFailed, pending, wrapSessionErr(err)
		}
		if !sawEnd {
			return OutcomeCancelled, pending, nil
		}
		if w.VideoDataError() || w.FatalError() {
			return OutcomeFailed, pending, &DeviceFatalError{Status: w}
		}
		reprint = w.GetReprintStatus()
		if !token.Sleep(c.retryInterval()) {
			return OutcomeCancelled, pending, nil
		}
	}
}

// waitLastPage blocks after the final page has been submitted until the
// device finishes printing it, resubmitting on a late reprint request
// (spec.md §4.5 tail). reprintSafetyBound guards against a device that never
// stops asking for reprints.
func (c *Controller) waitLastPage(token cancel.Token, previous *protocol.BufferedPage) (Outcome, error) {
	for attempt := 0; attempt < reprintSafetyBound; attempt++ {
		if token.Requested() {
			return OutcomeCancelled, nil
		}
		if !token.Sleep(c.pollInterval()) {
			return OutcomeCancelled, nil
		}

		w, sawEnd, err := c.session.WaitPrintEnd(token)
		if err != nil {
			return OutcomeFailed, wrapSessionErr(err)
		}
		if !sawEnd {
			return OutcomeCancelled, nil
		}
		if w.VideoDataError() || w.FatalError() {
			return OutcomeFailed, &DeviceFatalError{Status: w}
		}

		switch w.GetReprintStatus() {
		case status.ReprintNone:
			return OutcomeSucceeded, nil
		default:
			outcome, _, err := c.writePage(token, previous, nil)
			if outcome != OutcomeSucceeded {
				return outcome, err
			}
		}
	}
	return OutcomeFailed, ErrPageFailed
}

// Print drives a full job to completion: pulling pages from source, writing
// each with reprint recovery, and waiting out the engine after the last page
// has been accepted. The bool result reports whether the caller should treat
// the job as having finished cleanly from the spooler's perspective —
// cancellation mid-job is not itself an error (spec.md §4.6).
func (c *Controller) Print(token cancel.Token, source PageSource) (bool, error) {
	var previous *protocol.BufferedPage
	pageNumber := 0
	printedAny := false

	for {
		if token.Requested() {
			return true, nil
		}
		params, ok, err := source.NextPage()
		if err != nil {
			return false, wrapRasterErr(err)
		}
		if !ok {
			break
		}

		page, err := protocol.NewBufferedPage(pageNumber, params, source)
		if err != nil {
			return false, wrapRasterErr(err)
		}
		if c.reporter != nil {
			c.reporter.Page(pageNumber + 1)
		}

		outcome, written, err := c.writePage(token, page, previous)
		switch outcome {
		case OutcomeFailed:
			return false, err
		case OutcomeCancelled:
			return true, nil
		}

		printedAny = true
		previous = written
		pageNumber++
	}

	if !printedAny {
		return true, nil
	}

	outcome, err := c.waitLastPage(token, previous)
	switch outcome {
	case OutcomeFailed:
		return false, err
	default:
		return true, nil
	}
}

// Clean drives the maintenance clean cycle: reserve the idle slot, issue the
// cleaning command, and wait for the engine to report it finished
// (spec.md §4.6 step 6, original_source CaptPrinter::Clean).
func (c *Controller) Clean(token cancel.Token) error {
	for {
		if token.Requested() {
			return nil
		}
		if err := c.prepareBeforePrint(token, 0); err != nil {
			return err
		}
		if token.Requested() {
			return nil
		}
		if !token.Sleep(c.pollInterval()) {
			return nil
		}

		if err := c.session.Cleaning(); err != nil {
			return wrapSessionErr(err)
		}
		if !token.Sleep(2 * c.pollInterval()) {
			return nil
		}

		w, err := c.session.GetStatus()
		if err != nil {
			return wrapSessionErr(err)
		}
		if w.FatalError() {
			return &DeviceFatalError{Status: w}
		}
		if !w.Cleaning() {
			continue
		}

		_, sawEnd, err := c.session.WaitPrintEnd(token)
		if err != nil {
			return wrapSessionErr(err)
		}
		if !sawEnd {
			return nil
		}
		return nil
	}
}
