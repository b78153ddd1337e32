package control

import (
	"io"

	"github.com/darkvision77/captppd/internal/capt/protocol"
)

// PageSource produces, per page, a PageParams descriptor followed by the
// compressed video data for that page (spec.md §1, §9). A fresh NextPage
// call advances to the next page's metadata; Read streams the bytes of
// whichever page NextPage most recently yielded, terminated by io.EOF.
//
// internal/capt/raster implements this over a CUPS raster stream; tests in
// this package use an in-memory fake.
type PageSource interface {
	io.Reader
	NextPage() (params protocol.PageParams, ok bool, err error)
}
