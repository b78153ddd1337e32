package status

// Bit layouts for the four CAPT extended status word bytes that carry named
// flags (basic, controller, engine, aux).
//
// spec.md leaves the exact bit assignments as a protocol detail; the
// retrieved original_source/captbackend tree references these symbols
// (EngineReadyStatus, ControllerStatus, CMD_BUSY, ERROR_BIT, SERVICE_CALL,
// ...) through libcapt, which was not part of the retrieval pack. The
// values below are an original-but-plausible encoding that preserves every
// predicate and priority rule spec.md §3/§4.1 names; they are not claimed
// to match real Canon firmware byte-for-byte.

// Basic status byte.
const (
	basicCmdBusy  byte = 1 << 0
	basicErrorBit byte = 1 << 1
)

// Controller status byte.
const (
	controllerInvalidData             byte = 1 << 0
	controllerMissingEOP              byte = 1 << 1
	controllerUnderrun                byte = 1 << 2
	controllerOverrun                 byte = 1 << 3
	controllerEngineResetInProgress   byte = 1 << 4
	controllerReprintCurrent          byte = 1 << 5
	controllerReprintPrev             byte = 1 << 6
	controllerClearErrorLatch         byte = 1 << 7
)

// Basic status byte, online bit (set once a page-number reservation is active).
const (
	basicOnline byte = 1 << 2
)

// Engine (ready status) byte.
const (
	engineWaiting       byte = 1 << 0
	engineDoorOpen      byte = 1 << 1
	engineJam           byte = 1 << 2
	engineNoCartridge   byte = 1 << 3
	engineNoPrintPaper  byte = 1 << 4
	engineCleaning      byte = 1 << 5
	engineTestPrinting  byte = 1 << 6
	engineServiceCall   byte = 1 << 7
)

// Aux status byte.
const (
	auxPaperDelivery byte = 1 << 0
	auxSafeTimer     byte = 1 << 1
)
