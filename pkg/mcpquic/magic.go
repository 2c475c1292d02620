package mcpquic

import (
	"fmt"
	"io"
)

// ReadPreamble consumes the stream preamble and fails on anything else.
func ReadPreamble(r io.Reader) error {
	buf := make([]byte, len(Preamble))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read preamble: %w", err)
	}
	if string(buf) != Preamble {
		return fmt.Errorf("%w: got %q", ErrBadPreamble, buf)
	}
	return nil
}

// WritePreamble must be the client's first write on a new stream.
func WritePreamble(w io.Writer) error {
	if _, err := io.WriteString(w, Preamble); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}
	return nil
}
