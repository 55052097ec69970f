// Package video supplies ordered frame sequences decoded from uploaded
// video files. Decoding shells out to ffmpeg, which streams the frames as
// an MJPEG sequence on stdout; ffprobe supplies the total frame count up
// front so the pipeline can report progress.
package video

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg" // DecodeConfig for frame dimensions
)

// Frame is one decoded frame handed to the pipeline, in stream order.
type Frame struct {
	Index  int // 1-based position in the stream
	JPEG   []byte
	Width  int
	Height int
}

// Stream yields frames strictly in order. Next returns io.EOF after the
// final frame.
type Stream interface {
	Next() (Frame, error)
	Close() error
}

// Source opens a video file and returns its frame stream together with the
// total frame count. A file that cannot be opened or probed is a hard
// per-job error.
type Source interface {
	Open(ctx context.Context, path string) (Stream, int, error)
}

// frameDimensions decodes only the JPEG header to size a frame.
func frameDimensions(jpegData []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(jpegData))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
