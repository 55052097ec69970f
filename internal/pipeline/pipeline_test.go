package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/artifacts"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/monitoring"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/state"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/video"
)

func TestMain(m *testing.M) {
	restore := monitoring.Mute()
	code := m.Run()
	restore()
	os.Exit(code)
}

// testJPEG encodes a flat gray frame so the annotator has a real image to
// decode.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Gray{Y: 90})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// uploadFile creates a throwaway file standing in for an uploaded video.
func uploadFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeStream hands out pre-built frames in order, then io.EOF.
type fakeStream struct {
	frames []video.Frame
	pos    int
	gate   chan struct{} // when non-nil, Next blocks until closed
}

func (s *fakeStream) Next() (video.Frame, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.pos >= len(s.frames) {
		return video.Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeSource struct {
	stream  *fakeStream
	openErr error
}

func (s *fakeSource) Open(ctx context.Context, path string) (video.Stream, int, error) {
	if s.openErr != nil {
		return nil, 0, s.openErr
	}
	return s.stream, len(s.stream.frames), nil
}

// fakeDetector returns one prepared detection slice per frame, in order.
type fakeDetector struct {
	perFrame  [][]traffic.Detection
	calls     int
	available bool
	err       error
}

func (d *fakeDetector) Available() bool { return d.available }
func (d *fakeDetector) Mode() string    { return "fake" }

func (d *fakeDetector) Detect(ctx context.Context, frame []byte) ([]traffic.Detection, error) {
	if d.err != nil && d.calls == len(d.perFrame) {
		return nil, d.err
	}
	if d.calls >= len(d.perFrame) {
		return nil, nil
	}
	dets := d.perFrame[d.calls]
	d.calls++
	return dets, nil
}

type fixedSampler struct{ counts traffic.LaneCounts }

func (s fixedSampler) Counts() traffic.LaneCounts { return s.counts }

func carAt(x float64) traffic.Detection {
	return traffic.Detection{X1: x, Y1: 10, X2: x + 40, Y2: 60, ClassID: traffic.ClassCar, Confidence: 0.9}
}

func newTestFrames(t *testing.T) (*artifacts.Store, *artifacts.MemoryFileSystem) {
	t.Helper()
	memfs := artifacts.NewMemoryFileSystem()
	frames, err := artifacts.NewStore("processed", memfs)
	if err != nil {
		t.Fatal(err)
	}
	return frames, memfs
}

func waitTerminal(t *testing.T, store *state.Store) state.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		s := store.Job().Status
		return s == state.StatusCompleted || s == state.StatusError
	}, 5*time.Second, 2*time.Millisecond)
	return store.Job()
}

func TestDetectionJobPublishesAggregatedCounts(t *testing.T) {
	// Frame width 320 with four lanes puts lane boundaries at 80, 160, 240.
	jpg := testJPEG(t, 320, 240)
	stream := &fakeStream{frames: []video.Frame{
		{Index: 1, JPEG: jpg, Width: 320, Height: 240},
		{Index: 2, JPEG: jpg, Width: 320, Height: 240},
		{Index: 3, JPEG: jpg, Width: 320, Height: 240},
	}}
	det := &fakeDetector{
		available: true,
		perFrame: [][]traffic.Detection{
			{carAt(10)},              // lane A
			{carAt(170), carAt(200)}, // lane C x2
			{carAt(165)},             // lane C
		},
	}
	store := state.NewStore()
	frames, _ := newTestFrames(t)
	upload := uploadFile(t)

	r := NewRunner(context.Background(), Runtime{
		Store:    store,
		Detector: det,
		Source:   &fakeSource{stream: stream},
		Frames:   frames,
	}, Options{MinConfidence: 0.5})

	id, err := r.Submit(upload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusCompleted, job.Status)
	require.Equal(t, 100, job.Progress)
	require.Equal(t, id, job.ID)

	signals, _ := store.SignalState()
	green, ok := signals.GreenLane()
	require.True(t, ok)
	require.Equal(t, traffic.LaneC, green)
	require.Equal(t, traffic.LaneCounts{1, 0, 3, 0}, signals.Counts())
	require.Equal(t, traffic.BaseGreenSeconds, signals[traffic.LaneC].Time)

	if _, err := os.Stat(upload); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("uploaded file not removed: %v", err)
	}

	saved, err := frames.List()
	require.NoError(t, err)
	require.Len(t, saved, 3)
	require.Equal(t, "frame_0001.jpg", saved[0].Filename)
}

func TestSecondSubmissionRejectedWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	stream := &fakeStream{gate: gate}
	store := state.NewStore()
	frames, _ := newTestFrames(t)

	r := NewRunner(context.Background(), Runtime{
		Store:    store,
		Detector: &fakeDetector{available: true},
		Source:   &fakeSource{stream: stream},
		Frames:   frames,
	}, Options{})

	first, err := r.Submit(uploadFile(t))
	require.NoError(t, err)

	_, err = r.Submit(uploadFile(t))
	require.ErrorIs(t, err, ErrJobInProgress)

	close(gate)
	job := waitTerminal(t, store)
	require.Equal(t, state.StatusCompleted, job.Status)
	require.Equal(t, first, job.ID)

	// A terminal job frees the slot for the next submission.
	require.Eventually(t, func() bool { return !r.Busy() }, time.Second, time.Millisecond)
	stream.gate = nil
	stream.pos = 0
	_, err = r.Submit(uploadFile(t))
	require.NoError(t, err)
	waitTerminal(t, store)
}

func TestOpenFailureFailsJobWithoutPublishing(t *testing.T) {
	store := state.NewStore()
	frames, _ := newTestFrames(t)
	upload := uploadFile(t)

	r := NewRunner(context.Background(), Runtime{
		Store:    store,
		Detector: &fakeDetector{available: true},
		Source:   &fakeSource{openErr: errors.New("moov atom not found")},
		Frames:   frames,
	}, Options{})

	_, err := r.Submit(upload)
	require.NoError(t, err)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusError, job.Status)
	require.Contains(t, job.Error, "could not open video")

	signals, _ := store.SignalState()
	require.Equal(t, traffic.DefaultState(), signals)

	if _, err := os.Stat(upload); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("uploaded file not removed after failure: %v", err)
	}
}

func TestDetectorFailureMidJobLeavesStateUntouched(t *testing.T) {
	jpg := testJPEG(t, 320, 240)
	stream := &fakeStream{frames: []video.Frame{
		{Index: 1, JPEG: jpg, Width: 320, Height: 240},
		{Index: 2, JPEG: jpg, Width: 320, Height: 240},
	}}
	det := &fakeDetector{
		available: true,
		perFrame:  [][]traffic.Detection{{carAt(10)}},
		err:       errors.New("sidecar gone"),
	}
	store := state.NewStore()
	frames, _ := newTestFrames(t)

	r := NewRunner(context.Background(), Runtime{
		Store:    store,
		Detector: det,
		Source:   &fakeSource{stream: stream},
		Frames:   frames,
	}, Options{MinConfidence: 0.5})

	_, err := r.Submit(uploadFile(t))
	require.NoError(t, err)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusError, job.Status)
	require.Contains(t, job.Error, "frame 2")

	signals, _ := store.SignalState()
	require.Equal(t, traffic.DefaultState(), signals)
}

func TestFallbackPublishesSampledCounts(t *testing.T) {
	store := state.NewStore()
	frames, _ := newTestFrames(t)

	var mu sync.Mutex
	var updates []state.Job
	r := NewRunner(context.Background(), Runtime{
		Store:   store,
		Sampler: fixedSampler{counts: traffic.LaneCounts{8, 4, 20, 9}},
		Frames:  frames,
		OnUpdate: func(j state.Job) {
			mu.Lock()
			updates = append(updates, j)
			mu.Unlock()
		},
	}, Options{SyntheticSteps: 4})

	_, err := r.Submit(uploadFile(t))
	require.NoError(t, err)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusCompleted, job.Status)

	signals, _ := store.SignalState()
	green, ok := signals.GreenLane()
	require.True(t, ok)
	require.Equal(t, traffic.LaneC, green)
	require.Equal(t, traffic.MaxGreenSeconds, signals[traffic.LaneC].Time)

	// Hook saw the submission, each progress step, and the terminal update.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) >= 6 && updates[len(updates)-1].Status == state.StatusCompleted
	}, time.Second, time.Millisecond)
}

func TestUnavailableDetectorFallsBack(t *testing.T) {
	store := state.NewStore()
	frames, _ := newTestFrames(t)

	r := NewRunner(context.Background(), Runtime{
		Store:    store,
		Detector: &fakeDetector{available: false},
		Sampler:  fixedSampler{counts: traffic.LaneCounts{1, 2, 3, 4}},
		Frames:   frames,
	}, Options{SyntheticSteps: 2})

	_, err := r.Submit(uploadFile(t))
	require.NoError(t, err)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusCompleted, job.Status)

	signals, _ := store.SignalState()
	green, _ := signals.GreenLane()
	require.Equal(t, traffic.LaneD, green)
}

func TestArtifactWriteFailureDoesNotFailJob(t *testing.T) {
	jpg := testJPEG(t, 320, 240)
	stream := &fakeStream{frames: []video.Frame{
		{Index: 1, JPEG: jpg, Width: 320, Height: 240},
	}}
	store := state.NewStore()
	frames, memfs := newTestFrames(t)
	memfs.FailWrites = true

	r := NewRunner(context.Background(), Runtime{
		Store:    store,
		Detector: &fakeDetector{available: true, perFrame: [][]traffic.Detection{{carAt(10)}}},
		Source:   &fakeSource{stream: stream},
		Frames:   frames,
	}, Options{MinConfidence: 0.5})

	_, err := r.Submit(uploadFile(t))
	require.NoError(t, err)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusCompleted, job.Status)

	saved, err := frames.List()
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestCancelledContextStopsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := state.NewStore()
	frames, _ := newTestFrames(t)

	r := NewRunner(ctx, Runtime{
		Store:   store,
		Sampler: fixedSampler{counts: traffic.LaneCounts{1, 1, 1, 1}},
		Frames:  frames,
	}, Options{SyntheticSteps: 3, SyntheticPacing: time.Millisecond})

	_, err := r.Submit(uploadFile(t))
	require.NoError(t, err)

	job := waitTerminal(t, store)
	require.Equal(t, state.StatusError, job.Status)
	require.Contains(t, job.Error, "context canceled")
}
