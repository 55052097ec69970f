package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// FFmpegSource decodes video files by piping ffmpeg's MJPEG output.
// ffprobe runs first to count packets on the video stream; a file ffprobe
// cannot read fails the open, before any frame work starts.
type FFmpegSource struct {
	// FFmpegPath and FFprobePath override the binaries looked up on PATH.
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegSource returns a source using ffmpeg/ffprobe from PATH.
func NewFFmpegSource() *FFmpegSource {
	return &FFmpegSource{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

// parseProbe extracts the frame count from ffprobe's JSON output.
func parseProbe(data []byte) (int, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return 0, fmt.Errorf("no video stream found")
	}
	n, err := strconv.Atoi(out.Streams[0].NbReadPackets)
	if err != nil {
		return 0, fmt.Errorf("bad packet count %q: %w", out.Streams[0].NbReadPackets, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("video stream holds no frames")
	}
	return n, nil
}

// Open implements Source.
func (s *FFmpegSource) Open(ctx context.Context, path string) (Stream, int, error) {
	probe := exec.CommandContext(ctx, s.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,nb_read_packets",
		"-of", "json",
		path,
	)
	probeOut, err := probe.Output()
	if err != nil {
		return nil, 0, fmt.Errorf("could not open video file: %w", err)
	}
	total, err := parseProbe(probeOut)
	if err != nil {
		return nil, 0, fmt.Errorf("could not open video file: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.FFmpegPath,
		"-v", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "4",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, err
	}
	if err := cmd.Start(); err != nil {
		return nil, 0, fmt.Errorf("could not start ffmpeg: %w", err)
	}

	return &ffmpegStream{
		cmd:      cmd,
		stdout:   stdout,
		splitter: newJPEGSplitter(stdout),
	}, total, nil
}

type ffmpegStream struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	splitter *jpegSplitter
	index    int
}

// Next implements Stream. Frames come back in encode order; io.EOF marks a
// cleanly drained pipe.
func (f *ffmpegStream) Next() (Frame, error) {
	data, err := f.splitter.next()
	if err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("frame decode failed: %w", err)
	}
	w, h, err := frameDimensions(data)
	if err != nil {
		return Frame{}, fmt.Errorf("frame %d header unreadable: %w", f.index+1, err)
	}
	f.index++
	return Frame{Index: f.index, JPEG: data, Width: w, Height: h}, nil
}

// Close drains and reaps the ffmpeg process.
func (f *ffmpegStream) Close() error {
	io.Copy(io.Discard, f.stdout)
	f.stdout.Close()
	return f.cmd.Wait()
}
