// Package api is the HTTP boundary of the traffic service. Handlers
// validate, delegate to the store or pipeline, and serialize; no signal
// logic lives here.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/artifacts"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/config"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/detect"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/httputil"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/monitoring"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/pipeline"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/state"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/version"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/ws"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	store    *state.Store
	runner   *pipeline.Runner
	frames   *artifacts.Store
	detector detect.Detector // nil when running without a detector
	hub      *ws.ProgressHub // nil disables the progress stream
	cfg      *config.Config
}

func NewServer(store *state.Store, runner *pipeline.Runner, frames *artifacts.Store, detector detect.Detector, hub *ws.ProgressHub, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		store:    store,
		runner:   runner,
		frames:   frames,
		detector: detector,
		hub:      hub,
		cfg:      cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/upload", s.uploadVideo)
	mux.HandleFunc("/process_video", s.processVideo)
	mux.HandleFunc("/processing_status", s.processingStatus)
	mux.HandleFunc("/traffic_data", s.trafficData)
	mux.HandleFunc("/simulate_traffic", s.simulateTraffic)
	mux.HandleFunc("/reset_signals", s.resetSignals)
	mux.HandleFunc("/get_processed_frames", s.listProcessedFrames)
	mux.HandleFunc("/video_feed/", s.videoFeed)
	mux.HandleFunc("/traffic_chart", s.trafficChart)
	mux.HandleFunc("/ws/progress", s.progressSocket)
	return mux
}

// signalStateJSON renders a signal assignment under its wire keys
// (laneA..laneD).
func signalStateJSON(st traffic.SignalState) map[string]traffic.LaneSignal {
	out := make(map[string]traffic.LaneSignal, traffic.NumLanes)
	for _, l := range traffic.Lanes() {
		out[l.Key()] = st[l]
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	available := false
	mode := "synthetic"
	if s.detector != nil {
		available = s.detector.Available()
		if available {
			mode = s.detector.Mode()
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"timestamp":          time.Now().Format(time.RFC3339),
		"detector_available": available,
		"mode":               mode,
		"version":            version.Version,
	})
}

// saveUpload validates the multipart "video" part and writes it into the
// upload directory under a timestamped name.
func (s *Server) saveUpload(r *http.Request) (string, int, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.GetMaxUploadBytes())

	file, header, err := r.FormFile("video")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", http.StatusRequestEntityTooLarge, errors.New("video exceeds the upload size limit")
		}
		return "", http.StatusBadRequest, errors.New("no video file provided")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", http.StatusBadRequest, errors.New("no file selected")
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	allowed := s.cfg.GetAllowedExtensions()
	if !slices.Contains(allowed, ext) {
		return "", http.StatusBadRequest,
			fmt.Errorf("invalid file type %q, allowed: %s", ext, strings.Join(allowed, ", "))
	}

	dir := s.cfg.GetUploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("failed to prepare upload dir: %w", err)
	}
	dest := filepath.Join(dir, time.Now().Format("20060102_150405")+"_"+name)
	if err := writeUpload(dest, file); err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("failed to store upload: %w", err)
	}
	return dest, http.StatusOK, nil
}

func writeUpload(dest string, src multipart.File) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func (s *Server) uploadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	dest, status, err := s.saveUpload(r)
	if err != nil {
		httputil.WriteError(w, status, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Video uploaded successfully",
		"filename": filepath.Base(dest),
	})
}

func (s *Server) processVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	dest, status, err := s.saveUpload(r)
	if err != nil {
		httputil.WriteError(w, status, err.Error())
		return
	}

	jobID, err := s.runner.Submit(dest)
	if err != nil {
		// The upload is ours to clean up: the pipeline never took it.
		if rmErr := os.Remove(dest); rmErr != nil {
			monitoring.Logf("failed to remove rejected upload %s: %v", dest, rmErr)
		}
		if errors.Is(err, pipeline.ErrJobInProgress) {
			httputil.Conflict(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"job_id":  jobID,
		"status":  state.StatusProcessing,
		"message": "Video accepted for processing",
	})
}

func (s *Server) processingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.store.Job())
}

func (s *Server) trafficData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	signals, updated := s.store.SignalState()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      signalStateJSON(signals),
		"timestamp": updated.Format(time.RFC3339),
	})
}

type simulateRequest struct {
	Lane  string `json:"lane"`
	Count *int   `json:"count"`
}

func (s *Server) simulateTraffic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	lane, err := traffic.ParseLane(req.Lane)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid lane: %s", req.Lane))
		return
	}
	if req.Count == nil || *req.Count < 0 {
		httputil.BadRequest(w, "count must be a non-negative integer")
		return
	}

	signals := s.store.Simulate(lane, *req.Count)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Updated lane %s with count %d", lane, *req.Count),
		"data":    signalStateJSON(signals),
	})
}

func (s *Server) resetSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	signals := s.store.Reset()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Signals reset to default state",
		"data":    signalStateJSON(signals),
	})
}

func (s *Server) listProcessedFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	frames, err := s.frames.List()
	if err != nil {
		httputil.InternalServerError(w, "failed to list processed frames")
		return
	}
	type frameJSON struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
		Size     int64  `json:"size"`
	}
	out := make([]frameJSON, 0, len(frames))
	for _, f := range frames {
		out = append(out, frameJSON{
			Filename: f.Filename,
			URL:      "/api/video_feed/" + f.Filename,
			Size:     f.Size,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"frames":  out,
		"count":   len(out),
	})
}

func (s *Server) videoFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/video_feed/")
	data, err := s.frames.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			httputil.NotFound(w, "Frame not found")
			return
		}
		httputil.InternalServerError(w, "failed to read frame")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("failed to write frame %s: %v", name, err)
	}
}

func (s *Server) progressSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		httputil.NotFound(w, "progress stream disabled")
		return
	}
	s.hub.ServeHTTP(w, r, s.store.Job())
}
