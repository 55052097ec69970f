package detect

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

// CountRange is an inclusive [Min,Max] band for one lane's synthetic count.
type CountRange struct {
	Min, Max int
}

// DefaultLaneRanges are the per-lane sampling bands used when no detector
// is available. Lanes are deliberately uneven so the degraded mode still
// exercises the timing decision.
var DefaultLaneRanges = [traffic.NumLanes]CountRange{
	traffic.LaneA: {Min: 8, Max: 20},
	traffic.LaneB: {Min: 5, Max: 15},
	traffic.LaneC: {Min: 6, Max: 18},
	traffic.LaneD: {Min: 4, Max: 16},
}

// CountSampler produces one full set of per-lane counts. The pipeline uses
// it in place of frame-by-frame detection when the detector is unavailable.
type CountSampler interface {
	Counts() traffic.LaneCounts
}

// SyntheticGenerator samples per-lane counts independently and uniformly
// within fixed ranges. Sampling is driven by a seeded source so demos and
// tests are reproducible.
type SyntheticGenerator struct {
	samplers [traffic.NumLanes]distuv.Uniform
}

// NewSyntheticGenerator builds a generator over the given per-lane ranges.
func NewSyntheticGenerator(seed uint64, ranges [traffic.NumLanes]CountRange) *SyntheticGenerator {
	src := rand.NewSource(seed)
	g := &SyntheticGenerator{}
	for _, l := range traffic.Lanes() {
		r := ranges[l]
		// Max+1 with a floor keeps the integer range inclusive on both ends.
		g.samplers[l] = distuv.Uniform{
			Min: float64(r.Min),
			Max: float64(r.Max + 1),
			Src: src,
		}
	}
	return g
}

// Counts implements CountSampler.
func (g *SyntheticGenerator) Counts() traffic.LaneCounts {
	var c traffic.LaneCounts
	for _, l := range traffic.Lanes() {
		c[l] = int(g.samplers[l].Rand())
	}
	return c
}
