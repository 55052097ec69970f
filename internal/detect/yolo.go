package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

// healthProbeTTL is how long a successful health probe is trusted before
// the sidecar is asked again.
const healthProbeTTL = 30 * time.Second

// YOLOClient talks to a YOLO inference sidecar over HTTP. The sidecar
// accepts a multipart frame upload on /detect and reports readiness on
// /health.
type YOLOClient struct {
	endpoint      string
	client        *http.Client
	confThreshold float64

	mu        sync.Mutex
	lastProbe time.Time
	healthy   bool
}

// yoloDetection is one detection in the sidecar's response.
type yoloDetection struct {
	Class      string    `json:"class"`
	ClassID    int       `json:"class_id"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
}

// yoloResponse is the sidecar's /detect payload.
type yoloResponse struct {
	Detections []yoloDetection `json:"detections"`
	Count      int             `json:"count"`
}

type yoloHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewYOLOClient builds a client for the sidecar at endpoint
// (e.g. "http://localhost:8500"). confThreshold is forwarded to the sidecar
// with every request.
func NewYOLOClient(endpoint string, confThreshold float64) *YOLOClient {
	return &YOLOClient{
		endpoint:      endpoint,
		confThreshold: confThreshold,
		client: &http.Client{
			Timeout: 15 * time.Second, // inference on CPU can be slow
		},
	}
}

// Mode implements Detector.
func (c *YOLOClient) Mode() string { return "yolo" }

// Available probes the sidecar's health endpoint. A positive answer is
// cached for healthProbeTTL so per-frame calls stay cheap.
func (c *YOLOClient) Available() bool {
	c.mu.Lock()
	if c.healthy && time.Since(c.lastProbe) < healthProbeTTL {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	healthy := c.probe()

	c.mu.Lock()
	c.healthy = healthy
	c.lastProbe = time.Now()
	c.mu.Unlock()
	return healthy
}

func (c *YOLOClient) probe() bool {
	resp, err := c.client.Get(c.endpoint + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var h yoloHealth
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return false
	}
	return h.ModelLoaded
}

// Detect implements Detector. It uploads the frame as multipart form data
// and maps the sidecar's response onto traffic.Detection values.
func (c *YOLOClient) Detect(ctx context.Context, frameJPEG []byte) ([]traffic.Detection, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(frameJPEG); err != nil {
		return nil, err
	}
	if err := w.WriteField("conf_threshold", fmt.Sprintf("%.3f", c.confThreshold)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/detect", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		c.markUnhealthy()
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, msg)
	}

	var out yoloResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}

	dets := make([]traffic.Detection, 0, len(out.Detections))
	for _, d := range out.Detections {
		if len(d.BBox) != 4 {
			continue
		}
		dets = append(dets, traffic.Detection{
			X1:         d.BBox[0],
			Y1:         d.BBox[1],
			X2:         d.BBox[2],
			Y2:         d.BBox[3],
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
		})
	}
	return dets, nil
}

func (c *YOLOClient) markUnhealthy() {
	c.mu.Lock()
	c.healthy = false
	c.lastProbe = time.Now()
	c.mu.Unlock()
}
