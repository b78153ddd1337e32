package raster

import (
	"bufio"
	"io"
)

// scoaReader compresses a cropped monochrome bitmap stream with a run-length
// scheme in the spirit of CAPT's SCoA packing: each packet is a one-byte
// count N followed by either N literal bytes (count's top bit clear) or one
// byte repeated N times (top bit set). libcapt's real ScoaStreambuf was not
// part of the retrieval pack, so this is an original-but-plausible
// compressor good enough to exercise the write path's chunked transfer —
// not a byte-for-byte reimplementation of Canon's packing.
type scoaReader struct {
	src *bufio.Reader
	out []byte
	pos int
}

const (
	maxRun     = 1<<7 - 1 // 7 bits of count, keeping the top bit free for the tag
	literalTag = 0x00
	repeatTag  = 0x80
)

func newScoaReader(src io.Reader) *scoaReader {
	return &scoaReader{src: bufio.NewReader(src)}
}

func (s *scoaReader) Read(p []byte) (int, error) {
	for s.pos >= len(s.out) {
		if err := s.fillPacket(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.out[s.pos:])
	s.pos += n
	return n, nil
}

func (s *scoaReader) fillPacket() error {
	first, err := s.src.ReadByte()
	if err != nil {
		return err
	}

	run := 1
	for run < maxRun {
		b, err := s.src.Peek(1)
		if err != nil || b[0] != first {
			break
		}
		s.src.ReadByte()
		run++
	}

	if run >= 2 {
		s.out = []byte{byte(repeatTag | run), first}
		s.pos = 0
		return nil
	}

	literals := []byte{first}
	for len(literals) < maxRun {
		b, err := s.src.Peek(1)
		if err != nil {
			break
		}
		// Stop the literal run early if a repeat of 2+ would start here —
		// greedy single-byte lookahead keeps the packing logic simple.
		if next, err2 := s.src.Peek(2); err2 == nil && next[0] == next[1] {
			break
		}
		s.src.ReadByte()
		literals = append(literals, b[0])
	}

	s.out = append([]byte{byte(literalTag | len(literals))}, literals...)
	s.pos = 0
	return nil
}
