// Package annotate renders processed-frame artifacts: the original frame
// with accepted detections boxed, lane dividers drawn and per-lane counts
// overlaid.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

var (
	boxColor     = color.NRGBA{G: 255, A: 255}
	dividerColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const lineThickness = 2

// Frame decodes one JPEG frame, draws detections that passed the vehicle
// and confidence filters, adds lane dividers and labels, and re-encodes the
// result.
func Frame(frameJPEG []byte, dets []traffic.Detection, counts traffic.LaneCounts, minConfidence float64) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(frameJPEG))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	canvas := imaging.Clone(src)
	bounds := canvas.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	drawLaneDividers(canvas, width, height)

	for _, d := range dets {
		if !traffic.IsVehicleClass(d.ClassID) || d.Confidence <= minConfidence {
			continue
		}
		drawRect(canvas, int(d.X1), int(d.Y1), int(d.X2), int(d.Y2), boxColor)
		drawLabel(canvas, int(d.X1), int(d.Y1)-4,
			fmt.Sprintf("%s %.2f", traffic.ClassName(d.ClassID), d.Confidence))
	}

	drawCountOverlay(canvas, counts)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode annotated frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLaneDividers splits the frame into the fixed lane bands with vertical
// lines and a label centred in each band.
func drawLaneDividers(img *image.NRGBA, width, height int) {
	laneWidth := width / traffic.NumLanes
	if laneWidth == 0 {
		return
	}
	for i := 1; i < traffic.NumLanes; i++ {
		x := laneWidth * i
		fillRect(img, x, 0, x+lineThickness, height, dividerColor)
	}
	for _, l := range traffic.Lanes() {
		x := laneWidth*int(l) + laneWidth/2 - 24
		drawLabel(img, x, 20, "Lane "+l.String())
	}
}

// drawCountOverlay lists the running per-lane counts in the top-left corner.
func drawCountOverlay(img *image.NRGBA, counts traffic.LaneCounts) {
	y := 44
	for _, l := range traffic.Lanes() {
		drawLabel(img, 8, y, fmt.Sprintf("Lane %s: %d vehicles", l.String(), counts[l]))
		y += 16
	}
}

// drawRect outlines a box without filling it.
func drawRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	fillRect(img, x1, y1, x2, y1+lineThickness, c) // top
	fillRect(img, x1, y2-lineThickness, x2, y2, c) // bottom
	fillRect(img, x1, y1, x1+lineThickness, y2, c) // left
	fillRect(img, x2-lineThickness, y1, x2, y2, c) // right
}

// fillRect paints the pixel span [x1,x2)x[y1,y2), clipped to the image.
func fillRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	b := img.Bounds()
	if x1 < b.Min.X {
		x1 = b.Min.X
	}
	if y1 < b.Min.Y {
		y1 = b.Min.Y
	}
	if x2 > b.Max.X {
		x2 = b.Max.X
	}
	if y2 > b.Max.Y {
		y2 = b.Max.Y
	}
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func drawLabel(img *image.NRGBA, x, y int, text string) {
	if y < 10 {
		y = 10
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
