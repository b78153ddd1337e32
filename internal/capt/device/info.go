// Package device parses IEEE-1284 device IDs into PrinterInfo, builds the
// "direct" device URI CUPS displays for this backend, and matches a
// requested URI back to a discovered device (spec.md §4.6, §6.3, §6.6).
//
// Grounded on original_source/captbackend/Core/PrinterInfo.hpp and
// PrinterInfo.cpp's Parse/IsCaptPrinter/MakeUri/HasUri/Report.
package device

import (
	"fmt"
	"net/url"
	"strings"
)

// BackendName is the CUPS backend scheme. It must differ from the scheme
// CUPS's own usb backend reports, or CUPS will not list this backend
// separately in its web UI (original_source PrinterInfo.cpp comment).
const BackendName = "capt"

// PrinterInfo is the parsed identity of one discovered USB device: its raw
// IEEE-1284 device ID plus the fields extracted from it, and the serial
// number read separately from the USB descriptor.
type PrinterInfo struct {
	DeviceID     string
	Manufacturer string
	Model        string
	Description  string
	Serial       string
	CommandSet   string
	CmdVersion   string
}

// Parse extracts PrinterInfo from a raw IEEE-1284 device ID string (the
// semicolon-separated KEY:VALUE pairs a USB printer reports, e.g.
// "MFG:Canon;MDL:LBP6030;CMD:CAPT;VER:1.0;") and the device's USB serial
// number, read separately since it is not part of the device ID.
func Parse(deviceID, serial string) PrinterInfo {
	info := PrinterInfo{DeviceID: deviceID, Serial: serial}
	for _, part := range strings.Split(deviceID, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		switch k {
		case "MFG", "MANUFACTURER":
			info.Manufacturer = v
		case "MDL", "MODEL":
			info.Model = v
		case "DES", "DESCRIPTION":
			info.Description = v
		case "CMD", "COMMAND SET":
			info.CommandSet = v
		case "VER":
			info.CmdVersion = v
		}
	}
	return info
}

// IsCaptPrinter reports whether the device identifies as a CAPT v1 printer.
func (p PrinterInfo) IsCaptPrinter() bool {
	return p.CommandSet == "CAPT" && strings.HasPrefix(p.CmdVersion, "1")
}

// URI builds the "direct"-class CUPS device URI for this printer: the
// backend scheme, manufacturer/model as the host/path, and the serial number
// as a query parameter disambiguating multiple identical printer models
// (spec.md §6.3).
func (p PrinterInfo) URI() string {
	return fmt.Sprintf("%s://%s/%s?drv=capt&serial=%s",
		BackendName, url.PathEscape(p.Manufacturer), url.PathEscape(p.Model), url.QueryEscape(p.Serial))
}

// HasURI reports whether uri identifies this printer: same scheme,
// manufacturer and model, and a matching serial query parameter. Unknown
// query parameters are ignored so a URI CUPS round-tripped with extra
// backend options still matches (spec.md §6.6).
func (p PrinterInfo) HasURI(uri string) bool {
	// url.Parse rejects percent-escapes such as %20 in the host part, so the
	// scheme/manufacturer/model prefix is compared as a string against
	// URI()'s own escaped encoding, and only the query is parsed.
	base, rawQuery, ok := strings.Cut(uri, "?")
	if !ok {
		return false
	}
	if base != BackendName+"://"+url.PathEscape(p.Manufacturer)+"/"+url.PathEscape(p.Model) {
		return false
	}
	query, _ := url.ParseQuery(rawQuery)
	return query.Get("serial") == p.Serial
}

// String renders the one-line "device-class uri device-make-and-model
// device-info device-id device-location" record CUPS discovery mode prints
// per device (spec.md §6.3), matching PrinterInfo::Report's field order.
func (p PrinterInfo) String() string {
	makeAndModel := strings.TrimSpace(p.Manufacturer + " " + p.Model)
	return fmt.Sprintf("direct %s %q %q %q \"\"",
		p.URI(),
		makeAndModel+" ("+BackendName+")",
		makeAndModel,
		p.DeviceID,
	)
}
