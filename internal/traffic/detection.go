package traffic

import "fmt"

// Detection is one candidate-vehicle observation reported by the detector
// for a single frame. Coordinates are pixels in the frame's coordinate
// space; ClassID follows the COCO class numbering.
type Detection struct {
	X1, Y1, X2, Y2 float64
	ClassID        int
	Confidence     float64
}

// COCO class ids accepted as vehicles. Everything else is discarded during
// aggregation.
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

var vehicleClassNames = map[int]string{
	ClassCar:        "car",
	ClassMotorcycle: "motorcycle",
	ClassBus:        "bus",
	ClassTruck:      "truck",
}

// IsVehicleClass reports whether id is in the vehicle allow-list.
func IsVehicleClass(id int) bool {
	_, ok := vehicleClassNames[id]
	return ok
}

// ClassName returns the label for a vehicle class id, or "unknown".
func ClassName(id int) string {
	if name, ok := vehicleClassNames[id]; ok {
		return name
	}
	return "unknown"
}

// DefaultConfidenceThreshold is the minimum detector confidence a detection
// must exceed to be counted.
const DefaultConfidenceThreshold = 0.5

// LaneCounts holds the accumulated vehicle count per lane for one job.
// The fixed array keeps the lane set closed: there is no way to count
// against a lane outside A..D, and iteration order is always ascending.
type LaneCounts [NumLanes]int

// Get returns the count for one lane.
func (c LaneCounts) Get(l LaneID) int { return c[l] }

// Total returns the sum over all lanes.
func (c LaneCounts) Total() int {
	t := 0
	for _, n := range c {
		t += n
	}
	return t
}

// Accumulate folds one frame's detections into the running counts. Only
// detections with a vehicle class id and confidence strictly above
// minConfidence are counted; each accepted detection increments exactly one
// lane, chosen from its left edge. Rejected detections are not an error.
// Accumulation is a pure sum of increments, so it is independent of
// detection order.
func (c *LaneCounts) Accumulate(dets []Detection, frameWidth int, minConfidence float64) error {
	if frameWidth <= 0 {
		return fmt.Errorf("frame width must be positive, got %d", frameWidth)
	}
	for _, d := range dets {
		if !IsVehicleClass(d.ClassID) || d.Confidence <= minConfidence {
			continue
		}
		lane, err := ClassifyLane(d.X1, frameWidth, NumLanes)
		if err != nil {
			return err
		}
		c[lane]++
	}
	return nil
}
