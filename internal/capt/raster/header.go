// Package raster turns a CUPS raster stream into the control.PageSource
// contract: one protocol.PageParams per page, followed by that page's
// SCoA-compressed bitmap bytes (spec.md §1, §9).
//
// Grounded on original_source/captbackend/CmdPrint.cpp's makeParams/crop/
// ScoaStreambuf pipeline and Core/CupsRasterStreambuf.cpp's line-at-a-time
// reader. The full libcups cups_page_header2_t carries ~1800 bytes of fields
// (media names, color management, finishing options, ...) this backend never
// consults; no Go CUPS-raster-parsing library was present in the retrieval
// pack and binding libcups via cgo is out of scope here, so Header below is
// an original-but-plausible reduced encoding carrying only the fields
// makeParams actually used — it is not a byte-for-byte cups_page_header2_t.
package raster

import (
	"encoding/binary"
	"fmt"
	"io"
)

// syncWord identifies the start of a page header in this backend's raster
// ingestion stream, standing in for CUPS's "RaS2"/"RaS3" sync words.
var syncWord = [4]byte{'R', 'a', 'C', '1'}

// Header is the per-page metadata read ahead of that page's bitmap rows.
type Header struct {
	MediaType     uint32
	Compression   uint32
	HWResolutionX uint32
	MarginLeft    uint32
	MarginTop     uint32
	PaperWidth    uint32
	PaperHeight   uint32
	SmoothEnable  uint32
	TonerSaving   uint32
	BytesPerLine  uint32
	Height        uint32
	BitsPerPixel  uint32
	BitsPerColor  uint32
	NumColors     uint32
}

// headerFieldCount is the number of uint32 fields following the sync word,
// kept alongside Header's field list so ReadHeader can validate a short read.
const headerFieldCount = 13

// ErrInvalidFormat is returned when a page's pixel geometry isn't the
// 1-bit-per-pixel monochrome bitmap CAPT v1 expects (spec.md §7).
var ErrInvalidFormat = fmt.Errorf("raster format error: expected 1 bit per pixel, 1 bit per color, 1 color")

// ReadHeader reads one page header, or io.EOF if the stream has no more
// pages (mirrors cupsRasterReadHeader2 returning false at end of job).
func ReadHeader(r io.Reader) (Header, error) {
	var sync [4]byte
	if _, err := io.ReadFull(r, sync[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("truncated raster header: %w", err)
		}
		return Header{}, err
	}
	if sync != syncWord {
		return Header{}, fmt.Errorf("raster format error: bad sync word %q", sync)
	}

	fields := make([]uint32, headerFieldCount)
	if err := binary.Read(r, binary.LittleEndian, fields); err != nil {
		return Header{}, fmt.Errorf("truncated raster header: %w", err)
	}

	h := Header{
		MediaType:     fields[0],
		Compression:   fields[1],
		HWResolutionX: fields[2],
		MarginLeft:    fields[3],
		MarginTop:     fields[4],
		PaperWidth:    fields[5],
		PaperHeight:   fields[6],
		SmoothEnable:  fields[7],
		TonerSaving:   fields[8],
		BytesPerLine:  fields[9],
		Height:        fields[10],
		BitsPerPixel:  fields[11],
		BitsPerColor:  fields[12],
	}
	h.NumColors = 1 // the stream format is monochrome-only; see ErrInvalidFormat checks in Validate.
	return h, nil
}

// Validate rejects any page whose pixel geometry CAPT v1 cannot represent —
// matching CmdPrint.cpp's cupsBitsPerPixel/cupsBitsPerColor/cupsNumColors check.
func (h Header) Validate() error {
	if h.BitsPerPixel != 1 || h.BitsPerColor != 1 || h.NumColors != 1 {
		return ErrInvalidFormat
	}
	return nil
}
