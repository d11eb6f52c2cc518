package collision

import (
	"fmt"
	"math"
	"sort"

	"github.com/wildstyl3r/lxgata"
)

type Threshold struct {
	Energy   float64 // code units
	Ionizing bool
}

// Table is sorted by ascending threshold energy. At equal energies the
// ionizing entry sorts last so that it wins the lookup.
type Table []Threshold

// Collisions turns bare threshold/ionizing pairs into lxgata processes so
// that hand-written tables and LXCat files go through the same path.
func Collisions(thresholds []Threshold) lxgata.Collisions {
	out := make(lxgata.Collisions, 0, len(thresholds))
	for _, t := range thresholds {
		kind := lxgata.EXCITATION
		if t.Ionizing {
			kind = lxgata.IONIZATION
		}
		out = append(out, lxgata.Collision{Type: kind, Threshold: t.Energy})
	}
	return out
}

// NewTable keeps the threshold of every process, scaled from eV into code
// units by scale.
func NewTable(collisions lxgata.Collisions, scale float64) (Table, error) {
	if !(scale > 0) {
		return nil, fmt.Errorf("energy scale must be positive, got %g", scale)
	}
	t := make(Table, 0, len(collisions))
	for i, c := range collisions {
		energy := c.Threshold * scale
		if math.IsNaN(energy) || energy < 0 {
			return nil, fmt.Errorf("process %d (%s): threshold %g is not a non-negative energy", i, c.Type, c.Threshold)
		}
		t = append(t, Threshold{Energy: energy, Ionizing: c.Type == lxgata.IONIZATION})
	}
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Energy != t[j].Energy {
			return t[i].Energy < t[j].Energy
		}
		return !t[i].Ionizing && t[j].Ionizing
	})
	return t, nil
}

// Loss returns the highest threshold not exceeding energy; below every
// threshold the loss is zero.
func (t Table) Loss(energy float64) (threshold float64, ionizing bool) {
	idx := sort.Search(len(t), func(i int) bool { return t[i].Energy > energy })
	if idx == 0 {
		return 0, false
	}
	return t[idx-1].Energy, t[idx-1].Ionizing
}

func (t Table) HasIonizing() bool {
	for i := range t {
		if t[i].Ionizing {
			return true
		}
	}
	return false
}
