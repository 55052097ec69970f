// Package detect provides the vehicle detector capability used by the
// processing pipeline. Two variants exist: a live HTTP client for a YOLO
// inference sidecar, and a synthetic count generator for degraded operation
// when no detector service is reachable. The pipeline picks one at
// construction time and stays oblivious to which is active.
package detect

import (
	"context"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

// Detector produces vehicle detections for one JPEG-encoded frame.
type Detector interface {
	// Detect runs inference on a single frame and returns its detections.
	Detect(ctx context.Context, frameJPEG []byte) ([]traffic.Detection, error)

	// Available reports whether the detector can currently serve requests.
	// An unavailable detector is not an error: callers fall back to the
	// synthetic generator.
	Available() bool

	// Mode names the detector variant for the health endpoint.
	Mode() string
}
