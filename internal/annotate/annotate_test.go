package annotate

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

func blackFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFrameAnnotatesAndReencodes(t *testing.T) {
	frame := blackFrame(t, 640, 480)
	dets := []traffic.Detection{
		{X1: 40, Y1: 100, X2: 120, Y2: 180, ClassID: traffic.ClassCar, Confidence: 0.9},
		{X1: 200, Y1: 90, X2: 280, Y2: 170, ClassID: 0, Confidence: 0.99}, // person: not drawn
	}
	counts := traffic.LaneCounts{1, 0, 0, 0}

	out, err := Frame(frame, dets, counts, traffic.DefaultConfidenceThreshold)
	if err != nil {
		t.Fatal(err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("annotated frame does not decode: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Errorf("annotated size = %v", img.Bounds())
	}

	// Lane dividers sit at x=160/320/480; the divider pixels must be bright
	// against the black source frame.
	r, g, b, _ := img.At(160, 240).RGBA()
	if r < 0x8000 || g < 0x8000 || b < 0x8000 {
		t.Errorf("expected bright divider pixel at (160,240), got %d,%d,%d", r, g, b)
	}

	// A drawn box edge should be green-dominant.
	_, g, _, _ = img.At(80, 101).RGBA()
	if g < 0x8000 {
		t.Errorf("expected green box edge at (80,101), got green=%d", g)
	}
}

func TestFrameRejectsGarbageInput(t *testing.T) {
	if _, err := Frame([]byte("not a jpeg"), nil, traffic.LaneCounts{}, 0.5); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFrameClipsOutOfBoundsBoxes(t *testing.T) {
	frame := blackFrame(t, 100, 100)
	dets := []traffic.Detection{
		{X1: -30, Y1: -30, X2: 400, Y2: 400, ClassID: traffic.ClassBus, Confidence: 0.8},
	}
	if _, err := Frame(frame, dets, traffic.LaneCounts{}, 0.5); err != nil {
		t.Fatalf("out-of-bounds box must clip, not fail: %v", err)
	}
}
