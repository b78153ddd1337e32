package device

import (
	"strings"
	"testing"
)

func TestParseExtractsKnownKeys(t *testing.T) {
	t.Parallel()
	info := Parse("MFG:Canon;MDL:LBP6030;CMD:CAPT;VER:1.0;DES:Canon LBP6030", "SN123")

	want := PrinterInfo{
		DeviceID:     "MFG:Canon;MDL:LBP6030;CMD:CAPT;VER:1.0;DES:Canon LBP6030",
		Manufacturer: "Canon",
		Model:        "LBP6030",
		Description:  "Canon LBP6030",
		Serial:       "SN123",
		CommandSet:   "CAPT",
		CmdVersion:   "1.0",
	}
	if info != want {
		t.Fatalf("Parse() = %+v, want %+v", info, want)
	}
}

func TestParseAcceptsLongFormKeys(t *testing.T) {
	t.Parallel()
	info := Parse("MANUFACTURER:Canon;MODEL:LBP6030;COMMAND SET:CAPT;VER:1", "SN1")
	if info.Manufacturer != "Canon" || info.Model != "LBP6030" || info.CommandSet != "CAPT" {
		t.Fatalf("Parse() = %+v", info)
	}
}

func TestIsCaptPrinter(t *testing.T) {
	t.Parallel()
	cases := []struct {
		commandSet, version string
		want                bool
	}{
		{"CAPT", "1.0", true},
		{"CAPT", "1", true},
		{"CAPT", "2.0", false},
		{"PCL", "1.0", false},
		{"", "", false},
	}
	for _, c := range cases {
		info := PrinterInfo{CommandSet: c.commandSet, CmdVersion: c.version}
		if got := info.IsCaptPrinter(); got != c.want {
			t.Errorf("IsCaptPrinter(%q,%q) = %v, want %v", c.commandSet, c.version, got, c.want)
		}
	}
}

func TestURIRoundTripsThroughHasURI(t *testing.T) {
	t.Parallel()
	info := PrinterInfo{Manufacturer: "Canon", Model: "LBP6030", Serial: "SN123"}
	uri := info.URI()

	if !info.HasURI(uri) {
		t.Fatalf("HasURI(%q) = false, want true for the URI the same info produced", uri)
	}
}

func TestURIRoundTripsThroughHasURIWithEscapedModel(t *testing.T) {
	t.Parallel()
	// spec.md §6.3's own example: a model containing a space must
	// round-trip through the %20-escaped URI it produces.
	info := PrinterInfo{Manufacturer: "Canon", Model: "LBP 6030", Serial: "SN123"}
	uri := info.URI()

	if !strings.Contains(uri, "%20") {
		t.Fatalf("URI() = %q, expected a %%20-escaped model", uri)
	}
	if !info.HasURI(uri) {
		t.Fatalf("HasURI(%q) = false, want true for the URI the same info produced", uri)
	}
}

func TestHasURIRejectsDifferentSerial(t *testing.T) {
	t.Parallel()
	a := PrinterInfo{Manufacturer: "Canon", Model: "LBP6030", Serial: "SN123"}
	b := PrinterInfo{Manufacturer: "Canon", Model: "LBP6030", Serial: "SN999"}

	if a.HasURI(b.URI()) {
		t.Fatalf("HasURI matched a URI with a different serial")
	}
}

func TestHasURIRejectsDifferentModel(t *testing.T) {
	t.Parallel()
	a := PrinterInfo{Manufacturer: "Canon", Model: "LBP6030", Serial: "SN123"}
	b := PrinterInfo{Manufacturer: "Canon", Model: "LBP6040", Serial: "SN123"}

	if a.HasURI(b.URI()) {
		t.Fatalf("HasURI matched a URI with a different model")
	}
}

func TestHasURIRejectsGarbage(t *testing.T) {
	t.Parallel()
	info := PrinterInfo{Manufacturer: "Canon", Model: "LBP6030", Serial: "SN123"}
	if info.HasURI("not a uri at all://###") {
		t.Fatalf("HasURI matched garbage input")
	}
	if info.HasURI("usb://Canon/LBP6030?serial=SN123") {
		t.Fatalf("HasURI matched a URI with the wrong scheme")
	}
}

func TestStringIncludesDeviceIDAndURI(t *testing.T) {
	t.Parallel()
	info := PrinterInfo{
		DeviceID:     "MFG:Canon;MDL:LBP6030;CMD:CAPT;VER:1.0",
		Manufacturer: "Canon",
		Model:        "LBP6030",
		Serial:       "SN123",
	}
	line := info.String()

	if !strings.Contains(line, info.URI()) {
		t.Errorf("report line %q missing URI %q", line, info.URI())
	}
	if !strings.Contains(line, info.DeviceID) {
		t.Errorf("report line %q missing device-id %q", line, info.DeviceID)
	}
	if !strings.Contains(line, "direct ") {
		t.Errorf("report line %q missing device-class", line)
	}
}
