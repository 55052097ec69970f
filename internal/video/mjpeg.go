package video

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// jpegSplitter cuts a concatenated MJPEG byte stream into individual JPEG
// images by scanning for SOI/EOI markers.
type jpegSplitter struct {
	r *bufio.Reader
}

const (
	markerPrefix byte = 0xFF
	markerSOI    byte = 0xD8
	markerEOI    byte = 0xD9
)

func newJPEGSplitter(r io.Reader) *jpegSplitter {
	return &jpegSplitter{r: bufio.NewReaderSize(r, 1<<16)}
}

// next returns the bytes of the next complete JPEG in the stream, or io.EOF
// once the underlying reader is exhausted between images.
func (s *jpegSplitter) next() ([]byte, error) {
	// Seek the start-of-image marker, discarding any inter-frame noise.
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != markerPrefix {
			continue
		}
		nxt, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if nxt == markerSOI {
			break
		}
	}

	buf := bytes.NewBuffer([]byte{markerPrefix, markerSOI})
	prev := byte(0)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("truncated jpeg frame: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		buf.WriteByte(b)
		if prev == markerPrefix && b == markerEOI {
			return buf.Bytes(), nil
		}
		prev = b
	}
}
