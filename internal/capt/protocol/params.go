// Package protocol implements the CAPT v1 wire encoding: page parameters,
// command/response frames, and the rewindable per-page buffer (spec.md §3).
package protocol

import "fmt"

// Resolution is one of the two CAPT v1 print resolutions.
type Resolution uint16

const (
	Res300 Resolution = 300
	Res600 Resolution = 600
)

// PageParams is the per-page descriptor spec.md §3 requires.
type PageParams struct {
	PaperSizeCode   uint8
	TonerDensity    uint8
	Mode            uint8
	Resolution      Resolution
	SmoothEnable    bool
	TonerSaving     bool
	MarginLeft      uint16
	MarginTop       uint16
	ImageLineBytes  uint16
	ImageLines      uint16
	PaperWidth      uint16
	PaperHeight     uint16
}

// Validate checks the crop invariants spec.md §3 requires of a page already
// cropped to the paper dimensions.
func (p PageParams) Validate() error {
	if uint32(p.ImageLineBytes)*8 < uint32(p.PaperWidth) {
		return fmt.Errorf("protocol: image line bytes %d*8 < paper width %d", p.ImageLineBytes, p.PaperWidth)
	}
	if p.ImageLines > p.PaperHeight {
		return fmt.Errorf("protocol: image lines %d > paper height %d", p.ImageLines, p.PaperHeight)
	}
	return nil
}

// CropLineBytes returns the line-byte count after cropping to paperWidth,
// grounded in original_source's Utility::CropLineSize call shape.
func CropLineBytes(lineBytes, paperWidth uint16) uint16 {
	needed := (paperWidth + 7) / 8
	if needed < lineBytes {
		return needed
	}
	return lineBytes
}

// CropLines returns the line count after cropping to paperHeight.
func CropLines(lines, paperHeight uint16) uint16 {
	if paperHeight < lines {
		return paperHeight
	}
	return lines
}
