// Package traffic implements the lane model, vehicle count aggregation and
// the adaptive signal timing decision for a four-lane camera frame.
package traffic

import "fmt"

// LaneID identifies one of the fixed spatial lanes of a camera frame.
// Lanes partition the frame horizontally, left to right, and the ascending
// order of ids is load-bearing: it drives tie-breaking in ComputeTiming and
// the rotation order of NextPhase.
type LaneID int

const (
	LaneA LaneID = iota
	LaneB
	LaneC
	LaneD
)

// NumLanes is the size of the closed lane set.
const NumLanes = 4

// Lanes returns all lane ids in ascending order.
func Lanes() [NumLanes]LaneID {
	return [NumLanes]LaneID{LaneA, LaneB, LaneC, LaneD}
}

func (l LaneID) String() string {
	if l < LaneA || l > LaneD {
		return fmt.Sprintf("Lane(%d)", int(l))
	}
	return string(rune('A' + int(l)))
}

// Key returns the JSON object key used by the API ("laneA".."laneD").
func (l LaneID) Key() string {
	return "lane" + l.String()
}

// Next returns the lane after l in the fixed cyclic order A→B→C→D→A.
func (l LaneID) Next() LaneID {
	return (l + 1) % NumLanes
}

// ParseLane accepts a bare lane letter ("A") or an API key ("laneA"),
// case-insensitively for the letter.
func ParseLane(s string) (LaneID, error) {
	name := s
	if len(s) == len("laneA") && (s[:4] == "lane" || s[:4] == "Lane") {
		name = s[4:]
	}
	if len(name) == 1 {
		switch name[0] {
		case 'A', 'a':
			return LaneA, nil
		case 'B', 'b':
			return LaneB, nil
		case 'C', 'c':
			return LaneC, nil
		case 'D', 'd':
			return LaneD, nil
		}
	}
	return 0, fmt.Errorf("invalid lane %q", s)
}

// ClassifyLane maps a horizontal pixel coordinate to a lane. The frame is
// split into laneCount bands of width frameWidth/laneCount (integer
// division); bands are half-open, so x == laneWidth belongs to the second
// lane, and any division remainder is captured by the last lane. Negative
// coordinates clamp to the first lane so the function stays total for any
// detector output.
func ClassifyLane(x float64, frameWidth, laneCount int) (LaneID, error) {
	if frameWidth <= 0 {
		return 0, fmt.Errorf("frame width must be positive, got %d", frameWidth)
	}
	if laneCount <= 0 || laneCount > NumLanes {
		return 0, fmt.Errorf("lane count must be in 1..%d, got %d", NumLanes, laneCount)
	}
	laneWidth := frameWidth / laneCount
	if laneWidth == 0 {
		// Degenerate frame narrower than the lane count; everything lands
		// in the last lane, same as the remainder rule.
		return LaneID(laneCount - 1), nil
	}
	idx := int(x) / laneWidth
	if x < 0 || idx < 0 {
		idx = 0
	}
	if idx >= laneCount {
		idx = laneCount - 1
	}
	return LaneID(idx), nil
}
