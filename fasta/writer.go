package fasta

import (
	"bufio"
	"io"
)

// DefaultLineWidth is the conventional sequence line width.
const DefaultLineWidth = 60

// Writer writes FASTA records whose sequence arrives in arbitrary chunks.
type Writer struct {
	w     *bufio.Writer
	width int
	col   int
	open  bool
}

// NewWriter wraps sequence lines at width columns.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = DefaultLineWidth
	}
	return &Writer{w: bufio.NewWriter(w), width: width}
}

// WriteHeader terminates the current record and starts a new one.
func (fw *Writer) WriteHeader(name, description string) error {
	if err := fw.endRecord(); err != nil {
		return err
	}
	header := ">" + name
	if description != "" {
		header += " " + description
	}
	if _, err := fw.w.WriteString(header + "\n"); err != nil {
		return err
	}
	fw.open = true
	return nil
}

// Write appends sequence to the current record.
func (fw *Writer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := fw.width - fw.col
		if n > len(p) {
			n = len(p)
		}
		if _, err := fw.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		fw.col += n
		p = p[n:]
		if fw.col == fw.width {
			if err := fw.w.WriteByte('\n'); err != nil {
				return written, err
			}
			fw.col = 0
		}
	}
	return written, nil
}

// WriteByte appends one base to the current record.
func (fw *Writer) WriteByte(b byte) error {
	_, err := fw.Write([]byte{b})
	return err
}

// Flush terminates the open record and flushes buffered output.
func (fw *Writer) Flush() error {
	if err := fw.endRecord(); err != nil {
		return err
	}
	return fw.w.Flush()
}

func (fw *Writer) endRecord() error {
	if fw.open && fw.col > 0 {
		if err := fw.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	fw.col = 0
	fw.open = false
	return nil
}
