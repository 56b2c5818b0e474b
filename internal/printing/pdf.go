package printing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Receipt geometry, sized for an 80 mm thermal-roll look.
const (
	receiptWidthMM  = 80.0
	receiptHeightMM = 200.0
	receiptMarginMM = 5.0
	qrSizeMM        = 30.0
	qrSizePx        = 256
)

// PDFPrinter renders task tickets as PDF files in a configured directory.
type PDFPrinter struct {
	outputDir   string
	frontendURL string
	logger      *slog.Logger
}

// NewPDFPrinter creates a PDF backend writing into outputDir.
// The directory is created lazily on the first print.
func NewPDFPrinter(outputDir, frontendURL string, logger *slog.Logger) *PDFPrinter {
	return &PDFPrinter{
		outputDir:   outputDir,
		frontendURL: frontendURL,
		logger:      logger.With(slog.String("component", "pdf_printer")),
	}
}

// Ensure PDFPrinter implements Printer interface
var _ Printer = (*PDFPrinter)(nil)

// Name implements Printer.Name
func (p *PDFPrinter) Name() string { return "pdf" }

// Print implements Printer.Print
// It renders a receipt-style ticket with a QR code referencing the task and
// returns the path of the written file. I/O failures map to ErrOutput.
func (p *PDFPrinter) Print(ctx context.Context, snapshot TaskSnapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutput, err)
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating output directory: %v", ErrOutput, err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: receiptWidthMM, Ht: receiptHeightMM},
	})
	pdf.SetMargins(receiptMarginMM, receiptMarginMM, receiptMarginMM)
	pdf.SetAutoPageBreak(true, receiptMarginMM)
	pdf.AddPage()

	usableWidth := receiptWidthMM - 2*receiptMarginMM

	pdf.SetFont("Courier", "B", 12)
	pdf.MultiCell(usableWidth, 5, snapshot.Title, "", "C", false)
	p.dottedLine(pdf, usableWidth)

	pdf.SetFont("Courier", "", 9)
	if snapshot.Description != "" {
		pdf.MultiCell(usableWidth, 4, snapshot.Description, "", "L", false)
		pdf.Ln(2)
	}

	if snapshot.DueDate != nil {
		pdf.SetFont("Courier", "B", 9)
		pdf.CellFormat(usableWidth, 4, "Due:", "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 9)
		pdf.CellFormat(usableWidth, 4,
			snapshot.DueDate.UTC().Format("2006-01-02 15:04 MST"),
			"", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	if snapshot.Reward != "" {
		pdf.SetFont("Courier", "B", 9)
		pdf.CellFormat(usableWidth, 4, "Reward:", "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 9)
		pdf.MultiCell(usableWidth, 4, snapshot.Reward, "", "L", false)
		pdf.Ln(2)
	}

	p.dottedLine(pdf, usableWidth)

	if err := p.embedQR(pdf, snapshot); err != nil {
		return "", err
	}

	pdf.SetFont("Courier", "", 7)
	pdf.CellFormat(usableWidth, 3, snapshot.ID.String(), "", 1, "C", false, 0, "")

	filename := fmt.Sprintf("task_%s_%s.pdf",
		snapshot.ID, time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(p.outputDir, filename)

	if err := pdf.OutputFileAndClose(path); err != nil {
		p.logger.Error("failed to write ticket file",
			slog.String("task_id", snapshot.ID.String()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: writing %s: %v", ErrOutput, filename, err)
	}

	p.logger.Debug("ticket written",
		slog.String("task_id", snapshot.ID.String()),
		slog.String("path", path))
	return path, nil
}

// embedQR renders the task reference QR code and centers it on the page.
func (p *PDFPrinter) embedQR(pdf *gofpdf.Fpdf, snapshot TaskSnapshot) error {
	png, err := qrcode.Encode(taskURL(p.frontendURL, snapshot.ID), qrcode.Medium, qrSizePx)
	if err != nil {
		return fmt.Errorf("%w: encoding QR code: %v", ErrOutput, err)
	}

	imageName := "qr-" + snapshot.ID.String()
	pdf.RegisterImageOptionsReader(imageName,
		gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	if pdf.Err() {
		return fmt.Errorf("%w: registering QR image: %v", ErrOutput, pdf.Error())
	}

	x := (receiptWidthMM - qrSizeMM) / 2
	pdf.ImageOptions(imageName, x, pdf.GetY()+2, qrSizeMM, qrSizeMM, false,
		gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + qrSizeMM + 4)

	return nil
}

// dottedLine draws the receipt-style separator.
func (p *PDFPrinter) dottedLine(pdf *gofpdf.Fpdf, width float64) {
	pdf.SetFont("Courier", "", 8)
	separator := ""
	for i := 0; i < 32; i++ {
		separator += "- "
	}
	pdf.CellFormat(width, 4, separator, "", 1, "C", false, 0, "")
}
