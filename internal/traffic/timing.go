package traffic

// Signal is the colour assigned to a lane for the current decision cycle.
type Signal string

const (
	SignalGreen Signal = "Green"
	SignalRed   Signal = "Red"
)

// Priority marks the lane selected for the green phase.
type Priority string

const (
	PriorityHigh Priority = "High"
	PriorityLow  Priority = "Low"
)

// Signal timing constants (seconds).
const (
	BaseGreenSeconds = 15
	MaxGreenSeconds  = 30
)

// LaneSignal is the published state of one lane.
type LaneSignal struct {
	Count    int      `json:"count"`
	Signal   Signal   `json:"signal"`
	Time     int      `json:"time"`
	Priority Priority `json:"priority"`
}

// SignalState is a full signal assignment, one entry per lane. Every state
// produced by ComputeTiming has exactly one Green lane; DefaultState is the
// all-Red reset assignment.
type SignalState [NumLanes]LaneSignal

// DefaultState is the canonical initial assignment: every lane Red for the
// base duration with a zero count.
func DefaultState() SignalState {
	var s SignalState
	for i := range s {
		s[i] = LaneSignal{Count: 0, Signal: SignalRed, Time: BaseGreenSeconds, Priority: PriorityLow}
	}
	return s
}

// GreenDuration maps a lane's vehicle count to its green phase duration via
// the density step table.
func GreenDuration(count int) int {
	switch {
	case count > 15:
		return MaxGreenSeconds
	case count > 10:
		return 25
	case count > 5:
		return 20
	default:
		return BaseGreenSeconds
	}
}

// PriorityLane returns the lane with the maximum count. Ties break to the
// lowest lane id, so the all-zero case selects lane A.
func PriorityLane(counts LaneCounts) LaneID {
	best := LaneA
	for _, l := range Lanes() {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}

// ComputeTiming derives a full signal assignment from aggregated counts.
// The priority lane goes Green for GreenDuration of its count; every other
// lane holds Red at the base duration. The fixed-size LaneCounts input
// makes the lane set exhaustive by construction.
func ComputeTiming(counts LaneCounts) SignalState {
	green := PriorityLane(counts)
	var s SignalState
	for _, l := range Lanes() {
		if l == green {
			s[l] = LaneSignal{
				Count:    counts[l],
				Signal:   SignalGreen,
				Time:     GreenDuration(counts[l]),
				Priority: PriorityHigh,
			}
			continue
		}
		s[l] = LaneSignal{
			Count:    counts[l],
			Signal:   SignalRed,
			Time:     BaseGreenSeconds,
			Priority: PriorityLow,
		}
	}
	return s
}

// Counts extracts the per-lane counts embedded in a signal state.
func (s SignalState) Counts() LaneCounts {
	var c LaneCounts
	for _, l := range Lanes() {
		c[l] = s[l].Count
	}
	return c
}

// GreenLane returns the lane currently assigned Green, or false if the
// state holds no green phase (the canonical reset state).
func (s SignalState) GreenLane() (LaneID, bool) {
	for _, l := range Lanes() {
		if s[l].Signal == SignalGreen {
			return l, true
		}
	}
	return 0, false
}

// CycleTime sums all lane durations. Diagnostic only; the decision path
// never schedules a full rotation.
func CycleTime(s SignalState) int {
	total := 0
	for _, ls := range s {
		total += ls.Time
	}
	return total
}

// NextPhase returns the lane after current in the fixed rotation and that
// lane's configured duration. It is a standalone round-robin utility and is
// not invoked by the pipeline, which only ever promotes the max-count lane.
func NextPhase(s SignalState, current LaneID) (LaneID, int) {
	next := current.Next()
	return next, s[next].Time
}
