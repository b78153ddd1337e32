// Package reason implements the spooler-facing reason set and its
// STATE:/PAGE: emission protocol (spec.md §4.2, §6.4).
package reason

import (
	"fmt"
	"io"

	"github.com/darkvision77/captppd/internal/capt/status"
)

// Name is one member of the fixed reason vocabulary (spec.md §3).
type Name string

const (
	MediaEmpty        Name = "media-empty-error"
	MediaNeeded        Name = "media-needed-error"
	MediaJam           Name = "media-jam-error"
	TonerEmpty         Name = "toner-empty-error"
	DoorOpen           Name = "door-open-error"
	OtherError         Name = "other-error"
	UnknownError       Name = "unknown-error"
	Resuming           Name = "resuming"
	ConnectingToDevice Name = "connecting-to-device"
)

// Reporter owns a line-oriented text sink and the in-memory set of
// currently active reasons. Construct with New and always Close it so the
// remaining reasons are cleared on every exit path, matching
// StateReporter's destructor in original_source/captbackend/Core/StateReporter.cpp.
type Reporter struct {
	out     io.Writer
	reasons map[Name]struct{}
}

// New returns a Reporter writing STATE:/PAGE: lines to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out, reasons: make(map[Name]struct{})}
}

// Update recomputes the reason set from a status word (spec.md §4.2).
func (r *Reporter) Update(w status.Word) {
	serviceCall := w.ServiceCall()
	fatal := w.FatalError()
	if serviceCall || fatal {
		if r.dominantReasonUnchanged(serviceCall, fatal) {
			return
		}
		r.clearExcept()
		r.SetReason(OtherError, serviceCall)
		r.SetReason(UnknownError, fatal && !serviceCall)
		return
	}
	r.SetReason(OtherError, false)
	r.SetReason(UnknownError, false)

	noPaper := w.NoPrintPaper()
	r.SetReason(MediaEmpty, noPaper)
	r.SetReason(MediaNeeded, noPaper)
	r.SetReason(MediaJam, w.Jam())
	r.SetReason(TonerEmpty, w.NoCartridge())
	r.SetReason(DoorOpen, w.DoorOpen())
	r.SetReason(Resuming, w.Waiting())
}

// SetReason is idempotent: it emits a single "STATE: +/-<reason>" line only
// on a genuine transition (spec.md §4.2).
func (r *Reporter) SetReason(name Name, on bool) {
	_, contains := r.reasons[name]
	if on == contains {
		return
	}
	sign := "-"
	if on {
		sign = "+"
	}
	fmt.Fprintf(r.out, "STATE: %s%s\n", sign, name)
	if on {
		r.reasons[name] = struct{}{}
	} else {
		delete(r.reasons, name)
	}
}

// Page emits the 1-based page-number progress line (spec.md §4.2, §6.4).
func (r *Reporter) Page(n int) {
	fmt.Fprintf(r.out, "PAGE: page-number %d\n", n)
}

// Clear emits "-<reason>" for every currently active reason.
func (r *Reporter) Clear() {
	for name := range r.reasons {
		fmt.Fprintf(r.out, "STATE: -%s\n", name)
		delete(r.reasons, name)
	}
}

func (r *Reporter) clearExcept() {
	r.Clear()
}

// dominantReasonUnchanged reports whether the active reason set already
// matches what Update's service-call/fatal branch would set, so a repeated
// identical status word emits nothing instead of a spurious -/+ pair
// (spec.md invariant #2).
func (r *Reporter) dominantReasonUnchanged(serviceCall, fatal bool) bool {
	wantOther := serviceCall
	wantUnknown := fatal && !serviceCall
	if _, ok := r.reasons[OtherError]; ok != wantOther {
		return false
	}
	if _, ok := r.reasons[UnknownError]; ok != wantUnknown {
		return false
	}
	for name := range r.reasons {
		if name != OtherError && name != UnknownError {
			return false
		}
	}
	return true
}

// Close clears every remaining reason, mirroring StateReporter's destructor.
func (r *Reporter) Close() error {
	r.Clear()
	return nil
}

// Active returns a snapshot of the currently active reason names, for tests.
func (r *Reporter) Active() map[Name]struct{} {
	out := make(map[Name]struct{}, len(r.reasons))
	for k := range r.reasons {
		out[k] = struct{}{}
	}
	return out
}
