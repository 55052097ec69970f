// Package pipeline orchestrates one video-processing job: frames are pulled
// in order from the source, run through the detector (or the synthetic
// fallback), classified and aggregated, and the final signal assignment is
// published to the shared store. Submission is asynchronous; callers poll
// the store for status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/annotate"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/artifacts"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/detect"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/monitoring"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/state"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/video"
)

// ErrJobInProgress rejects a submission while another job is processing.
// There is no queue: the caller retries once the active job is terminal.
var ErrJobInProgress = errors.New("a video is already being processed")

// Options tunes one runner. Zero values fall back to sensible behaviour
// (no pacing pauses, ten synthetic steps).
type Options struct {
	MinConfidence   float64
	FrameSkip       int           // frames between pacing pauses
	ProcessingDelay time.Duration // pause inserted every FrameSkip frames
	SyntheticSteps  int           // progress increments in fallback mode
	SyntheticPacing time.Duration // pause between fallback increments
}

// Runtime bundles the dependencies a runner needs. Passing them explicitly
// keeps wiring visible and tests deterministic.
type Runtime struct {
	Store    *state.Store
	Detector detect.Detector     // nil when no detector is configured
	Sampler  detect.CountSampler // fallback count source
	Source   video.Source
	Frames   *artifacts.Store
	OnUpdate func(state.Job)     // optional push hook (websocket hub)
}

// Runner executes at most one job at a time.
type Runner struct {
	ctx  context.Context
	rt   Runtime
	opts Options

	mu   sync.Mutex
	busy bool
}

// NewRunner builds a runner bound to a lifecycle context; cancelling ctx
// cooperatively stops an in-flight job.
func NewRunner(ctx context.Context, rt Runtime, opts Options) *Runner {
	if opts.SyntheticSteps <= 0 {
		opts.SyntheticSteps = 10
	}
	if opts.FrameSkip <= 0 {
		opts.FrameSkip = 10
	}
	return &Runner{ctx: ctx, rt: rt, opts: opts}
}

// Busy reports whether a job is currently processing.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Submit starts asynchronous processing of an uploaded video and returns
// the new job id immediately. The uploaded file is deleted on every exit
// path of the job, success or failure.
func (r *Runner) Submit(videoPath string) (string, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return "", ErrJobInProgress
	}
	r.busy = true
	r.mu.Unlock()

	id := uuid.NewString()
	r.rt.Store.StartJob(id)
	r.notify()

	go r.run(id, videoPath)
	return id, nil
}

func (r *Runner) run(id, videoPath string) {
	defer func() {
		if err := os.Remove(videoPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			monitoring.Logf("job %s: failed to remove uploaded video %s: %v", id, videoPath, err)
		}
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	if err := r.rt.Frames.Clear(); err != nil {
		monitoring.Logf("job %s: failed to clear previous artifacts: %v", id, err)
	}

	var err error
	if r.rt.Detector != nil && r.rt.Detector.Available() {
		err = r.runDetection(videoPath)
	} else {
		monitoring.Logf("job %s: detector unavailable, using synthetic counts", id)
		err = r.runFallback()
	}

	if err != nil {
		monitoring.Logf("job %s failed: %v", id, err)
		r.rt.Store.FailJob(err.Error())
	} else {
		r.rt.Store.CompleteJob()
	}
	r.notify()
}

// runDetection processes every frame in order. Any detector or source
// failure past open aborts the job without publishing; the previously
// committed signal state stays authoritative.
func (r *Runner) runDetection(videoPath string) error {
	stream, total, err := r.rt.Source.Open(r.ctx, videoPath)
	if err != nil {
		return fmt.Errorf("could not open video: %w", err)
	}
	defer stream.Close()

	var counts traffic.LaneCounts
	processed := 0
	for {
		if err := r.ctx.Err(); err != nil {
			return err
		}

		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		dets, err := r.rt.Detector.Detect(r.ctx, frame.JPEG)
		if err != nil {
			return fmt.Errorf("detection failed on frame %d: %w", frame.Index, err)
		}
		if err := counts.Accumulate(dets, frame.Width, r.opts.MinConfidence); err != nil {
			return err
		}

		processed++
		if total > 0 {
			r.rt.Store.UpdateProgress(processed * 100 / total)
			r.notify()
		}

		r.persistArtifact(frame, dets, counts)

		if r.opts.ProcessingDelay > 0 && processed%r.opts.FrameSkip == 0 {
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			case <-time.After(r.opts.ProcessingDelay):
			}
		}
	}

	r.rt.Store.Publish(traffic.ComputeTiming(counts))
	return nil
}

// runFallback synthesizes per-lane counts and steps progress to completion
// with fixed pacing. This is designed degraded operation, not a failure.
func (r *Runner) runFallback() error {
	counts := r.rt.Sampler.Counts()

	steps := r.opts.SyntheticSteps
	for i := 1; i <= steps; i++ {
		if r.opts.SyntheticPacing > 0 {
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			case <-time.After(r.opts.SyntheticPacing):
			}
		} else if err := r.ctx.Err(); err != nil {
			return err
		}
		r.rt.Store.UpdateProgress(i * 100 / steps)
		r.notify()
	}

	r.rt.Store.Publish(traffic.ComputeTiming(counts))
	return nil
}

// persistArtifact writes the annotated frame. Failures here are transient
// IO problems: logged, frame skipped, job unaffected.
func (r *Runner) persistArtifact(frame video.Frame, dets []traffic.Detection, counts traffic.LaneCounts) {
	annotated, err := annotate.Frame(frame.JPEG, dets, counts, r.opts.MinConfidence)
	if err != nil {
		monitoring.Logf("skipping artifact for frame %d: %v", frame.Index, err)
		return
	}
	if _, err := r.rt.Frames.SaveFrame(frame.Index, annotated); err != nil {
		monitoring.Logf("skipping artifact for frame %d: %v", frame.Index, err)
	}
}

func (r *Runner) notify() {
	if r.rt.OnUpdate != nil {
		r.rt.OnUpdate(r.rt.Store.Job())
	}
}
