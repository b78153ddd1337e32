package protocol

import (
	"bytes"
	"io"
)

// BufferedPage holds one page's compressed video data fully in memory so it
// can be rewound and resubmitted verbatim on a reprint request (spec.md §3).
// At most two are ever live at once (current, previous) — the controller
// layer enforces that, this type just provides the rewindable storage.
type BufferedPage struct {
	PageNumber int // zero-based
	Params     PageParams
	data       []byte
	r          *bytes.Reader
}

// NewBufferedPage drains src into an owned buffer. src's EOF naturally stops
// the read; an empty stream (zero compressed bytes) is valid — the device's
// response to the subsequent write determines success (spec.md §8 boundary case).
func NewBufferedPage(pageNumber int, params PageParams, src io.Reader) (*BufferedPage, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	p := &BufferedPage{PageNumber: pageNumber, Params: params, data: data}
	p.r = bytes.NewReader(p.data)
	return p, nil
}

// Rewind seeks the page back to offset 0, required on every entry to the
// transmit state (spec.md §4.5 S1).
func (p *BufferedPage) Rewind() {
	p.r.Seek(0, io.SeekStart)
}

// Read implements io.Reader over the buffered compressed data.
func (p *BufferedPage) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Len returns the number of compressed bytes buffered.
func (p *BufferedPage) Len() int {
	return len(p.data)
}
