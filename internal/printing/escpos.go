package printing

import (
	"bytes"
	"strings"
)

// ESC/POS command sequences used by the ticket layout.
// Kept as raw byte literals so the encoding reads like the printer manual.
var (
	cmdInit         = []byte{0x1B, 0x40}             // ESC @
	cmdAlignLeft    = []byte{0x1B, 0x61, 0x00}       // ESC a 0
	cmdAlignCenter  = []byte{0x1B, 0x61, 0x01}       // ESC a 1
	cmdBoldOn       = []byte{0x1B, 0x45, 0x01}       // ESC E 1
	cmdBoldOff      = []byte{0x1B, 0x45, 0x00}       // ESC E 0
	cmdDoubleSize   = []byte{0x1D, 0x21, 0x11}       // GS ! double width+height
	cmdNormalSize   = []byte{0x1D, 0x21, 0x00}       // GS ! normal
	cmdFeedAndCut   = []byte{0x0A, 0x0A, 0x0A, 0x1D, 0x56, 0x01} // feed, GS V partial cut
	cmdQRModel      = []byte{0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00}
	cmdQRModuleSize = []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x06}
	cmdQRErrorLevel = []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x30}
	cmdQRPrint      = []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30}
)

// ticketLineWidth is the character width of the ZJ-5870 class of printers.
const ticketLineWidth = 32

// encodeTicket builds the complete ESC/POS byte stream for one task ticket:
// heading, labelled fields, a QR code referencing the task, and a cut.
func encodeTicket(snapshot TaskSnapshot, qrPayload string) []byte {
	var buf bytes.Buffer

	buf.Write(cmdInit)

	// Heading: centered, bold, double size.
	buf.Write(cmdAlignCenter)
	buf.Write(cmdBoldOn)
	buf.Write(cmdDoubleSize)
	writeWrapped(&buf, snapshot.Title, ticketLineWidth/2)
	buf.Write(cmdNormalSize)
	buf.Write(cmdBoldOff)
	buf.WriteString(strings.Repeat("-", ticketLineWidth))
	buf.WriteByte('\n')

	buf.Write(cmdAlignLeft)

	if snapshot.Description != "" {
		writeWrapped(&buf, snapshot.Description, ticketLineWidth)
		buf.WriteByte('\n')
	}

	if snapshot.DueDate != nil {
		writeLabelled(&buf, "Due", snapshot.DueDate.UTC().Format("2006-01-02 15:04"))
	}

	if snapshot.Reward != "" {
		writeLabelled(&buf, "Reward", snapshot.Reward)
	}

	// QR code, centered under the fields.
	buf.Write(cmdAlignCenter)
	buf.Write(cmdQRModel)
	buf.Write(cmdQRModuleSize)
	buf.Write(cmdQRErrorLevel)
	buf.Write(qrStoreCommand(qrPayload))
	buf.Write(cmdQRPrint)
	buf.WriteByte('\n')

	buf.WriteString(snapshot.ID.String())
	buf.WriteByte('\n')

	buf.Write(cmdFeedAndCut)

	return buf.Bytes()
}

// qrStoreCommand builds the GS ( k "store data" command whose length field
// covers the three function bytes plus the payload.
func qrStoreCommand(payload string) []byte {
	length := len(payload) + 3
	cmd := []byte{0x1D, 0x28, 0x6B, byte(length & 0xFF), byte(length >> 8), 0x31, 0x50, 0x30}
	return append(cmd, payload...)
}

// writeLabelled emits a bold label line followed by the wrapped value.
func writeLabelled(buf *bytes.Buffer, label, value string) {
	buf.Write(cmdBoldOn)
	buf.WriteString(label + ":")
	buf.WriteByte('\n')
	buf.Write(cmdBoldOff)
	writeWrapped(buf, value, ticketLineWidth)
}

// writeWrapped word-wraps text to the given width, one newline per line.
// Words longer than the width are broken rather than overflowing.
func writeWrapped(buf *bytes.Buffer, text string, width int) {
	for _, word := range strings.Fields(text) {
		// A word too long for one line is broken at the width; it must
		// start on a fresh line or its first chunk would overflow.
		if len(word) > width && lineLength(buf) > 0 {
			buf.WriteByte('\n')
		}
		for len(word) > width {
			buf.WriteString(word[:width])
			buf.WriteByte('\n')
			word = word[width:]
		}

		lineLen := lineLength(buf)
		switch {
		case lineLen == 0:
			buf.WriteString(word)
		case lineLen+1+len(word) <= width:
			buf.WriteByte(' ')
			buf.WriteString(word)
		default:
			buf.WriteByte('\n')
			buf.WriteString(word)
		}
	}
	buf.WriteByte('\n')
}

// lineLength returns the length of the current (unfinished) line in buf.
func lineLength(buf *bytes.Buffer) int {
	b := buf.Bytes()
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '\n' || b[i] < 0x20 {
			return len(b) - 1 - i
		}
	}
	return len(b)
}
