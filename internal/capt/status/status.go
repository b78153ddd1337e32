// Package status models the CAPT extended status word and the pure
// predicates derived from it (spec.md §3, §4.1).
package status

// Word is a 10-byte value type mirroring the printer's extended status
// reply. It is copied by value throughout the codebase — predicates are
// pure functions over it, never mutating shared state (spec.md §9).
type Word struct {
	Basic          byte
	Changed        byte
	Aux            byte
	Controller     byte
	PaperAvailable byte
	Engine         byte
	Start          byte
	Printing       byte
	Shipped        byte
	Printed        byte
}

// Parse decodes the 10-byte wire representation of a status reply.
func Parse(b [10]byte) Word {
	return Word{
		Basic:          b[0],
		Changed:        b[1],
		Aux:            b[2],
		Controller:     b[3],
		PaperAvailable: b[4],
		Engine:         b[5],
		Start:          b[6],
		Printing:       b[7],
		Shipped:        b[8],
		Printed:        b[9],
	}
}

// ReprintStatus is the device's reprint-request signal (spec.md Glossary).
type ReprintStatus int

const (
	ReprintNone ReprintStatus = iota
	ReprintCurrent
	ReprintPrev
)

// FatalError reports whether basic has CMD_BUSY or ERROR_BIT set (spec §3).
func (w Word) FatalError() bool {
	return w.Basic&(basicCmdBusy|basicErrorBit) != 0
}

// VideoDataError reports whether controller has any video-transfer fault bit set.
func (w Word) VideoDataError() bool {
	return w.Controller&(controllerInvalidData|controllerMissingEOP|controllerUnderrun|controllerOverrun) != 0
}

// ServiceCall reports whether the engine has latched a service-call condition.
func (w Word) ServiceCall() bool {
	return w.Engine&engineServiceCall != 0
}

// ClearErrorNeeded reports whether the device has latched a clearable error bit.
func (w Word) ClearErrorNeeded() bool {
	return w.Controller&controllerClearErrorLatch != 0
}

// IsPrinting reports whether the device is actively feeding/printing a sheet.
func (w Word) IsPrinting() bool {
	return w.Aux&(auxPaperDelivery|auxSafeTimer) != 0 || w.Engine&engineTestPrinting != 0
}

// Ready reports whether the device will accept new work.
//
// Grounded in original_source/captbackend/Core/CaptPrinter.cpp's WaitReady
// loop, which treats any fatal, service, or engine-busy condition as "not
// ready" and otherwise proceeds.
func (w Word) Ready() bool {
	if w.FatalError() || w.ServiceCall() || w.VideoDataError() {
		return false
	}
	if w.Engine&(engineWaiting|engineDoorOpen|engineJam|engineNoCartridge|engineNoPrintPaper|engineCleaning) != 0 {
		return false
	}
	if w.Controller&controllerEngineResetInProgress != 0 {
		return false
	}
	if w.IsPrinting() {
		return false
	}
	return true
}

// Online reports whether the device currently has an active page-number
// reservation (spec.md §3). Whether that reservation's slot matches the
// page the caller wants to submit is a separate comparison against Start,
// made by the caller (spec.md §4.4 prepare_before_print).
func (w Word) Online() bool {
	return w.Basic&basicOnline != 0
}

// NoPrintPaper reports the engine's out-of-paper bit.
func (w Word) NoPrintPaper() bool { return w.Engine&engineNoPrintPaper != 0 }

// Jam reports the engine's paper-jam bit.
func (w Word) Jam() bool { return w.Engine&engineJam != 0 }

// NoCartridge reports the engine's missing-toner-cartridge bit.
func (w Word) NoCartridge() bool { return w.Engine&engineNoCartridge != 0 }

// DoorOpen reports the engine's door-open bit.
func (w Word) DoorOpen() bool { return w.Engine&engineDoorOpen != 0 }

// Cleaning reports the engine's maintenance-cleaning-active bit.
func (w Word) Cleaning() bool { return w.Engine&engineCleaning != 0 }

// Waiting reports the engine-waiting / reset-in-progress condition that
// maps to the spooler's "resuming" reason and the "Waiting" status message.
func (w Word) Waiting() bool {
	return w.Engine&engineWaiting != 0 || w.Controller&controllerEngineResetInProgress != 0
}

// GetReprintStatus parses the controller byte's reprint-request bits.
func (w Word) GetReprintStatus() ReprintStatus {
	switch {
	case w.Controller&controllerReprintPrev != 0:
		return ReprintPrev
	case w.Controller&controllerReprintCurrent != 0:
		return ReprintCurrent
	default:
		return ReprintNone
	}
}
