// Package usb supplies the one concrete Transport CAPT sessions run over: a
// USB bulk interface reached through github.com/google/gousb (spec.md §1,
// §4.6). It is adapted from the teacher's agent/usbproxy package, which
// enumerated USB printers for IPP-USB HTTP tunneling — the enumerator/
// transport interface split and Config/DefaultConfig shape are
// kept, but the transport itself now does bulk CAPT framing instead of
// http.RoundTripper, and discovery matches by USB printer class instead of
// IPP-USB's protocol byte.
package usb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// USB printer interface class/subclass, shared with the IPP-USB case this
// package's ancestor handled (spec.md Glossary "printer class interface").
const (
	classPrinter    = 0x07
	subClassPrinter = 0x01
)

// Candidate describes one discovered USB device that looks like a printer,
// before it has been opened or its IEEE-1284 device ID has been read
// (spec.md §4.6 step 1 "discover").
type Candidate struct {
	Bus, Address    int
	VendorID        gousb.ID
	ProductID       gousb.ID
	Manufacturer    string
	Product         string
	SerialNumber    string
	ConfigValue     int
	InterfaceIndex  int
	AltSetting      int
}

// Transport is the bidirectional bulk byte stream session.Session drives.
// It is distinct from session.Transport only so this package need not import
// session; its method set is session.Transport's plus Close, so any
// usb.Transport satisfies session.Transport by structural typing.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetDeadline(t time.Time) error
	Close() error
}

// Enumerator finds CAPT-capable USB printers and opens a Transport to one.
// Tests substitute a fake; the orchestrator calls Enumerate, DeviceID, Open
// and Close (spec.md §4.6).
type Enumerator interface {
	Enumerate() ([]Candidate, error)
	DeviceID(c Candidate) (string, error)
	Open(c Candidate) (Transport, error)
	Close() error
}

// Config tunes the gousb-backed enumerator. Mirrors the shape of the
// teacher's usbproxy.Config without the HTTP-proxy-only fields.
type Config struct {
	// ReadTimeout/WriteTimeout bound a single bulk transfer (spec.md §5).
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig matches spec.md §5's default transport timeout.
func DefaultConfig() Config {
	return Config{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
}

// GousbEnumerator is the real Enumerator, backed by libusb via gousb.
type GousbEnumerator struct {
	ctx    *gousb.Context
	config Config
}

// NewGousbEnumerator opens a libusb context. Callers must Close it when done.
func NewGousbEnumerator(config Config) *GousbEnumerator {
	return &GousbEnumerator{ctx: gousb.NewContext(), config: config}
}

// Close releases the underlying libusb context.
func (e *GousbEnumerator) Close() error {
	return e.ctx.Close()
}

// Enumerate lists every attached USB device exposing a printer-class
// interface (class 0x07, subclass 0x01), regardless of protocol byte — CAPT
// v1 does not use the IPP-USB protocol value the teacher's enumerator
// special-cased, so printer/subclass alone is the filter (spec.md §4.6).
func (e *GousbEnumerator) Enumerate() ([]Candidate, error) {
	var candidates []Candidate

	devs, err := e.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, cfg := range desc.Configs {
			for _, intf := range cfg.Interfaces {
				for _, alt := range intf.AltSettings {
					if byte(alt.Class) == classPrinter && byte(alt.SubClass) == subClassPrinter {
						return true
					}
				}
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate usb devices: %w", err)
	}

	for _, dev := range devs {
		c := Candidate{
			Bus:       dev.Desc.Bus,
			Address:   dev.Desc.Address,
			VendorID:  dev.Desc.Vendor,
			ProductID: dev.Desc.Product,
		}
		if mfg, err := dev.Manufacturer(); err == nil {
			c.Manufacturer = mfg
		}
		if prod, err := dev.Product(); err == nil {
			c.Product = prod
		}
		if serial, err := dev.SerialNumber(); err == nil {
			c.SerialNumber = serial
		}
	matchInterface:
		for _, cfg := range dev.Desc.Configs {
			for _, intf := range cfg.Interfaces {
				for i, alt := range intf.AltSettings {
					if byte(alt.Class) == classPrinter && byte(alt.SubClass) == subClassPrinter {
						c.ConfigValue = cfg.Number
						c.InterfaceIndex = intf.Number
						c.AltSetting = i
						break matchInterface
					}
				}
			}
		}
		candidates = append(candidates, c)
		dev.Close()
	}
	return candidates, nil
}

// DeviceID issues the USB printer class GET_DEVICE_ID control request
// (class/interface/IN, bRequest 0) and returns the IEEE-1284 device ID
// string it replies with — the same request
// original_source/captbackend/UsbBackend/UsbPrinter.cpp's GetDeviceId makes
// via libusb_control_transfer, translated to gousb's Control (spec.md §4.6
// step 1, §6.6).
func (e *GousbEnumerator) DeviceID(c Candidate) (string, error) {
	dev, err := e.ctx.OpenDeviceWithVIDPID(c.VendorID, c.ProductID)
	if err != nil {
		return "", fmt.Errorf("open device %04x:%04x: %w", c.VendorID, c.ProductID, err)
	}
	if dev == nil {
		return "", fmt.Errorf("device %04x:%04x not found", c.VendorID, c.ProductID)
	}
	defer dev.Close()

	buf := make([]byte, 1024)
	n, err := dev.Control(
		gousb.ControlIn|gousb.ControlClass|gousb.ControlInterface,
		0,
		uint16(c.ConfigValue),
		uint16(c.InterfaceIndex)<<8|uint16(c.AltSetting),
		buf,
	)
	if err != nil {
		return "", fmt.Errorf("get device id: %w", err)
	}
	if n < 2 {
		return "", fmt.Errorf("get device id: short reply (%d bytes)", n)
	}
	length := int(buf[0])<<8 | int(buf[1])
	if length < 2 || length > n {
		length = n
	}
	return string(buf[2:length]), nil
}

// Open claims the device's default interface (configuration 1, interface 0,
// alternate setting 0) and returns a Transport bound to bulk OUT endpoint
// 0x01 and bulk IN endpoint 0x81. The printer interface recorded in c
// (ConfigValue, InterfaceIndex, AltSetting) is not used here.
func (e *GousbEnumerator) Open(c Candidate) (Transport, error) {
	dev, err := e.ctx.OpenDeviceWithVIDPID(c.VendorID, c.ProductID)
	if err != nil {
		return nil, fmt.Errorf("open device %04x:%04x: %w", c.VendorID, c.ProductID, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("device %04x:%04x not found", c.VendorID, c.ProductID)
	}

	// Not fatal: some platforms (and already-detached interfaces) reject
	// this; claiming the interface below still works.
	_ = dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	out, err := intf.OutEndpoint(1)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("open bulk out endpoint: %w", err)
	}
	in, err := intf.InEndpoint(0x81)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("open bulk in endpoint: %w", err)
	}

	return &gousbTransport{
		dev:     dev,
		done:    done,
		out:     out,
		in:      in,
		config:  e.config,
		timeout: e.config.ReadTimeout,
	}, nil
}

// gousbTransport implements Transport over one claimed interface's bulk
// endpoint pair.
type gousbTransport struct {
	dev     *gousb.Device
	done    func()
	out     *gousb.OutEndpoint
	in      *gousb.InEndpoint
	config  Config
	timeout time.Duration
}

func (t *gousbTransport) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout())
	defer cancel()
	return t.out.WriteContext(ctx, p)
}

func (t *gousbTransport) Read(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.readTimeout())
	defer cancel()
	return t.in.ReadContext(ctx, p)
}

// SetDeadline records the bound applied to the next Read or Write. gousb has
// no persistent-deadline concept, so each call derives its own
// context.WithTimeout instead (spec.md §5); SetDeadline here only updates the
// duration used by the following calls. A zero deadline does not disable the
// bound: it restores the configured ReadTimeout/WriteTimeout. A deadline
// already in the past leaves the previous duration in place.
func (t *gousbTransport) SetDeadline(deadline time.Time) error {
	if deadline.IsZero() {
		t.timeout = 0
		return nil
	}
	if d := time.Until(deadline); d > 0 {
		t.timeout = d
	}
	return nil
}

func (t *gousbTransport) readTimeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return t.config.ReadTimeout
}

func (t *gousbTransport) writeTimeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return t.config.WriteTimeout
}

// Close releases the claimed interface and the device handle.
func (t *gousbTransport) Close() error {
	t.done()
	return t.dev.Close()
}
