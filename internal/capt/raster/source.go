package raster

import (
	"fmt"
	"io"

	"github.com/darkvision77/captppd/internal/capt/protocol"
)

// Source reads a backend-raster stream and implements control.PageSource:
// NextPage parses one page's header into protocol.PageParams, and Read
// streams that page's cropped, SCoA-compressed bitmap (spec.md §9),
// matching CmdPrint.cpp's per-page makeParams/CropStreambuf/ScoaStreambuf
// pipeline.
type Source struct {
	r       io.Reader
	current io.Reader
}

// NewSource wraps r, which must yield this backend's raster stream (spec.md §6.2).
func NewSource(r io.Reader) *Source {
	return &Source{r: r}
}

// NextPage reads the next page header and prepares Read to stream its
// compressed bitmap. ok is false once the stream is exhausted.
func (s *Source) NextPage() (protocol.PageParams, bool, error) {
	h, err := ReadHeader(s.r)
	if err == io.EOF {
		return protocol.PageParams{}, false, nil
	}
	if err != nil {
		return protocol.PageParams{}, false, err
	}
	if err := h.Validate(); err != nil {
		return protocol.PageParams{}, false, err
	}

	params := protocol.PageParams{
		PaperSizeCode: uint8(h.MediaType),
		TonerDensity:  uint8(h.Compression),
		Resolution:    resolutionFor(h.HWResolutionX),
		SmoothEnable:  h.SmoothEnable != 0,
		TonerSaving:   h.TonerSaving != 0,
		MarginLeft:    uint16(h.MarginLeft),
		MarginTop:     uint16(h.MarginTop),
		PaperWidth:    uint16(h.PaperWidth),
		PaperHeight:   uint16(h.PaperHeight),
	}
	params.ImageLineBytes = protocol.CropLineBytes(uint16(h.BytesPerLine), params.PaperWidth)
	params.ImageLines = protocol.CropLines(uint16(h.Height), params.PaperHeight)
	if err := params.Validate(); err != nil {
		return protocol.PageParams{}, false, fmt.Errorf("raster: %w", err)
	}

	cropped := newCropReader(s.r, int(h.BytesPerLine), int(h.Height), int(params.ImageLineBytes), int(params.ImageLines))
	s.current = newScoaReader(cropped)
	return params, true, nil
}

// Read streams the current page's compressed bitmap bytes, ending with
// io.EOF once the page is exhausted (spec.md §9).
func (s *Source) Read(p []byte) (int, error) {
	if s.current == nil {
		return 0, io.EOF
	}
	return s.current.Read(p)
}

func resolutionFor(hwResolutionX uint32) protocol.Resolution {
	if hwResolutionX == uint32(protocol.Res600) {
		return protocol.Res600
	}
	return protocol.Res300
}
