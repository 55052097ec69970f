package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/api"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/artifacts"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/config"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/detect"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/pipeline"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/state"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/version"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/video"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/ws"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Path to JSON config file")
	dummyMode  = flag.Bool("dummy", false, "Skip the detector and synthesize counts")
)

func homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Smart Traffic Management Server!"))
}

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := os.MkdirAll(cfg.GetUploadDir(), 0o755); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}
	frames, err := artifacts.NewStore(cfg.GetProcessedDir(), nil)
	if err != nil {
		log.Fatalf("failed to create artifact store: %v", err)
	}

	var detector detect.Detector
	if *dummyMode {
		log.Print("running in dummy mode: all jobs use synthetic counts")
	} else {
		detector = detect.NewYOLOClient(cfg.GetDetectorEndpoint(), cfg.GetConfidenceThreshold())
	}

	store := state.NewStore()
	hub := ws.NewProgressHub()
	sampler := detect.NewSyntheticGenerator(uint64(time.Now().UnixNano()), detect.DefaultLaneRanges)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(ctx, pipeline.Runtime{
		Store:    store,
		Detector: detector,
		Sampler:  sampler,
		Source:   video.NewFFmpegSource(),
		Frames:   frames,
		OnUpdate: hub.Broadcast,
	}, pipeline.Options{
		MinConfidence:   cfg.GetConfidenceThreshold(),
		FrameSkip:       cfg.GetFrameSkip(),
		ProcessingDelay: cfg.GetProcessingDelay(),
		SyntheticSteps:  cfg.GetSyntheticSteps(),
		SyntheticPacing: cfg.GetSyntheticPacing(),
	})

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.HandleFunc("/", homeHandler)

		apiMux := api.NewServer(store, runner, frames, detector, hub, cfg).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("traffic server %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
