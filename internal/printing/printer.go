// Package printing routes task ticket print requests to one of several
// interchangeable output backends. The backend is selected once from
// configuration; callers only see the Printer interface and the PrintError
// taxonomy.
package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/config"
	"github.com/phrazzld/taskward-api/internal/domain"
)

// Print error taxonomy. Every backend failure wraps ErrPrint, so callers
// can match the family with errors.Is(err, ErrPrint) or a specific variant.
var (
	// ErrPrint is the root of all printing failures.
	ErrPrint = errors.New("print failed")

	// ErrDeviceNotFound is returned when the configured hardware device
	// is not attached.
	ErrDeviceNotFound = fmt.Errorf("%w: device not found", ErrPrint)

	// ErrAccessDenied is returned when the device exists but cannot be
	// claimed (busy, or insufficient permissions).
	ErrAccessDenied = fmt.Errorf("%w: access denied", ErrPrint)

	// ErrOutput is returned for I/O failures while producing the artifact:
	// unwritable output directory, partial device write, render failure.
	ErrOutput = fmt.Errorf("%w: output error", ErrPrint)
)

// TaskSnapshot is the slice of a task a ticket needs. It is built by the
// caller at print time and discarded after the call returns.
type TaskSnapshot struct {
	ID          uuid.UUID
	Title       string
	Description string
	DueDate     *time.Time
	Reward      string
}

// Snapshot builds a TaskSnapshot from a task.
func Snapshot(task *domain.Task) TaskSnapshot {
	return TaskSnapshot{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Reward:      task.Reward,
	}
}

// Printer renders a task ticket on some output backend.
// Implementations do not retry; retries, if any, are the caller's concern.
type Printer interface {
	// Print renders the snapshot and returns a reference to the produced
	// artifact: a file path for document backends, a device address for
	// hardware backends. Failures wrap ErrPrint.
	Print(ctx context.Context, snapshot TaskSnapshot) (string, error)

	// Name identifies the backend for logging.
	Name() string
}

// NewPrinter selects and constructs the configured backend.
// Selection happens once here, at assembly time; nothing downstream
// branches on the backend again.
func NewPrinter(cfg config.PrinterConfig, logger *slog.Logger) (Printer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "pdf":
		return NewPDFPrinter(cfg.OutputDir, cfg.FrontendURL, logger), nil
	case "usb":
		return NewUSBPrinter(cfg.VendorID, cfg.ProductID, cfg.FrontendURL, logger), nil
	default:
		return nil, fmt.Errorf("unsupported printer backend: %q", cfg.Backend)
	}
}

// taskURL is the reference encoded into a ticket's QR code.
func taskURL(frontendURL string, id uuid.UUID) string {
	return fmt.Sprintf("%s/tasks/%s", frontendURL, id)
}
