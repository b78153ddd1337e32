package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/darkvision77/captppd/internal/capt/status"
)

// Command identifies one CAPT v1 request. The literal opcode values mirror
// the shape of calls PrinterSession issues in original_source's
// CaptPrinter.cpp (ReserveUnit, ReleaseUnit, GoOnline, GoOffline, GetStatus,
// ClearError, WriteVideoData's header, Cleaning) — libcapt's real wire
// encoding was not in the retrieval pack, so these are an
// original-but-plausible framing sufficient to drive the state machine.
type Command uint8

const (
	CmdReserveUnit  Command = 0x01
	CmdReleaseUnit  Command = 0x02
	CmdGoOnline     Command = 0x03
	CmdGoOffline    Command = 0x04
	CmdGetStatus    Command = 0x05
	CmdClearError   Command = 0x06
	CmdStartPage    Command = 0x07
	CmdVideoData    Command = 0x08
	CmdEndPage      Command = 0x09
	CmdCleaning     Command = 0x0A
)

const frameMagic = 0x04

// EncodeFrame builds a {magic, opcode, length-LE16, payload} request frame.
func EncodeFrame(cmd Command, payload []byte) []byte {
	buf := make([]byte, 0, 4+len(payload))
	buf = append(buf, frameMagic, byte(cmd))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	return buf
}

// ProtocolFaultError signals a malformed device reply (spec.md §7).
type ProtocolFaultError struct {
	Reason string
}

func (e *ProtocolFaultError) Error() string {
	return fmt.Sprintf("protocol fault: %s", e.Reason)
}

// ReadStatusReply reads and parses a 10-byte status-word reply frame.
func ReadStatusReply(r io.Reader) (status.Word, error) {
	var b [10]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return status.Word{}, &ProtocolFaultError{Reason: "short status reply: " + err.Error()}
	}
	return status.Parse(b), nil
}

// ReadAck reads and validates a single-byte ack/nak reply to a control frame.
func ReadAck(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, &ProtocolFaultError{Reason: "short ack reply: " + err.Error()}
	}
	return b[0] != 0, nil
}

// EncodePageParams serializes PageParams into the CmdStartPage payload.
func EncodePageParams(p PageParams) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, p.PaperSizeCode, p.TonerDensity, p.Mode)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(p.Resolution))
	flags := byte(0)
	if p.SmoothEnable {
		flags |= 1
	}
	if p.TonerSaving {
		flags |= 2
	}
	buf = append(buf, flags)
	buf = binary.LittleEndian.AppendUint16(buf, p.MarginLeft)
	buf = binary.LittleEndian.AppendUint16(buf, p.MarginTop)
	buf = binary.LittleEndian.AppendUint16(buf, p.ImageLineBytes)
	buf = binary.LittleEndian.AppendUint16(buf, p.ImageLines)
	buf = binary.LittleEndian.AppendUint16(buf, p.PaperWidth)
	buf = binary.LittleEndian.AppendUint16(buf, p.PaperHeight)
	return buf
}
