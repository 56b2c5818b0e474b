package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/gousb"
)

// outEndpointNum is the bulk-out endpoint of the supported ZJ-5870 class of
// thermal printers (address 0x03).
const outEndpointNum = 3

// usbTransport is the writable connection to an attached printer.
// It exists so tests can substitute the gousb-backed implementation.
type usbTransport interface {
	io.Writer
	Close() error
}

// usbOpener opens a transport to the device with the given IDs.
// Failures are returned already mapped onto the PrintError taxonomy.
type usbOpener func(vendorID, productID uint16) (usbTransport, error)

// USBPrinter renders task tickets on a USB thermal printer addressed by its
// vendor/product ID pair. The ESC/POS byte encoding stays fully inside this
// backend.
type USBPrinter struct {
	vendorID    uint16
	productID   uint16
	frontendURL string
	logger      *slog.Logger

	// open is swapped out in tests to avoid real hardware.
	open usbOpener
}

// NewUSBPrinter creates a hardware backend for the given device IDs.
func NewUSBPrinter(vendorID, productID uint16, frontendURL string, logger *slog.Logger) *USBPrinter {
	return &USBPrinter{
		vendorID:    vendorID,
		productID:   productID,
		frontendURL: frontendURL,
		logger:      logger.With(slog.String("component", "usb_printer")),
		open:        openUSBDevice,
	}
}

// Ensure USBPrinter implements Printer interface
var _ Printer = (*USBPrinter)(nil)

// Name implements Printer.Name
func (p *USBPrinter) Name() string { return "usb" }

// Print implements Printer.Print
// It claims the device, writes the complete ESC/POS ticket in one call, and
// returns the device address as the artifact reference. A short write maps
// to ErrOutput; nothing is written when the device cannot be opened.
func (p *USBPrinter) Print(ctx context.Context, snapshot TaskSnapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutput, err)
	}

	transport, err := p.open(p.vendorID, p.productID)
	if err != nil {
		p.logger.Warn("failed to open printer device",
			slog.String("device", p.deviceAddress()),
			slog.String("error", err.Error()))
		return "", err
	}
	defer func() {
		if closeErr := transport.Close(); closeErr != nil {
			p.logger.Warn("failed to close printer device",
				slog.String("error", closeErr.Error()))
		}
	}()

	payload := encodeTicket(snapshot, taskURL(p.frontendURL, snapshot.ID))

	n, err := transport.Write(payload)
	if err != nil {
		return "", fmt.Errorf("%w: device write: %v", ErrOutput, err)
	}
	if n < len(payload) {
		return "", fmt.Errorf("%w: partial write (%d of %d bytes)", ErrOutput, n, len(payload))
	}

	p.logger.Debug("ticket printed",
		slog.String("task_id", snapshot.ID.String()),
		slog.String("device", p.deviceAddress()),
		slog.Int("bytes", n))
	return p.deviceAddress(), nil
}

func (p *USBPrinter) deviceAddress() string {
	return fmt.Sprintf("usb:%04x:%04x", p.vendorID, p.productID)
}

// gousbTransport bundles the gousb handles whose lifetimes are tied to one
// print call.
type gousbTransport struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	release func()
	out     *gousb.OutEndpoint
}

func (t *gousbTransport) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

func (t *gousbTransport) Close() error {
	t.release()
	err := t.dev.Close()
	if ctxErr := t.ctx.Close(); err == nil {
		err = ctxErr
	}
	return err
}

// openUSBDevice is the production usbOpener backed by gousb.
func openUSBDevice(vendorID, productID uint16) (usbTransport, error) {
	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		_ = usbCtx.Close()
		if errors.Is(err, gousb.ErrorAccess) || errors.Is(err, gousb.ErrorBusy) {
			return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		return nil, fmt.Errorf("%w: opening device: %v", ErrOutput, err)
	}
	if dev == nil {
		_ = usbCtx.Close()
		return nil, fmt.Errorf("%w: usb %04x:%04x not attached",
			ErrDeviceNotFound, vendorID, productID)
	}

	// The kernel usblp driver usually owns the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		_ = dev.Close()
		_ = usbCtx.Close()
		return nil, fmt.Errorf("%w: detaching kernel driver: %v", ErrAccessDenied, err)
	}

	intf, release, err := dev.DefaultInterface()
	if err != nil {
		_ = dev.Close()
		_ = usbCtx.Close()
		if errors.Is(err, gousb.ErrorAccess) || errors.Is(err, gousb.ErrorBusy) {
			return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		return nil, fmt.Errorf("%w: claiming interface: %v", ErrOutput, err)
	}

	out, err := intf.OutEndpoint(outEndpointNum)
	if err != nil {
		release()
		_ = dev.Close()
		_ = usbCtx.Close()
		return nil, fmt.Errorf("%w: out endpoint %d: %v", ErrOutput, outEndpointNum, err)
	}

	return &gousbTransport{ctx: usbCtx, dev: dev, release: release, out: out}, nil
}
