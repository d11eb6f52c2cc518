package cycle

import (
	"fmt"
	"math"

	"github.com/wildstyl3r/exopic/internal/fault"
	"github.com/wildstyl3r/exopic/internal/particle"
)

const ledgerFloor = 1e-12

// Counters is the charge bookkeeping of one species over one cycle.
type Counters struct {
	Count float64 // charge found inside the obstacle
	Qdel  float64 // removed by the obstacle
	Qrep  float64 // net change at the walls
	Qexo  float64 // photoionization
	Qion  float64 // electron-impact ionization
	Qin   float64 // migrated in
	Qout  float64 // migrated out
	Qlost float64 // left the box with no owner

	Particles int // after the cycle
}

// Net is the charge change the counters account for.
func (c Counters) Net() float64 {
	return c.Qion + c.Qexo - c.Qdel + c.Qrep + c.Qin - c.Qout - c.Qlost
}

func (c Counters) magnitude() float64 {
	return math.Abs(c.Qion) + math.Abs(c.Qexo) + math.Abs(c.Qdel) + math.Abs(c.Qrep) +
		math.Abs(c.Qin) + math.Abs(c.Qout) + math.Abs(c.Qlost)
}

func (c *Counters) Add(o Counters) {
	c.Count += o.Count
	c.Qdel += o.Qdel
	c.Qrep += o.Qrep
	c.Qexo += o.Qexo
	c.Qion += o.Qion
	c.Qin += o.Qin
	c.Qout += o.Qout
	c.Qlost += o.Qlost
	c.Particles += o.Particles
}

// Ledger holds the species charges at the start of a cycle.
type Ledger struct {
	tolerance float64
	before    []float64
}

// NewLedger snapshots the total charge of every species. tolerance is
// relative to the magnitude of the charges involved.
func NewLedger(species []*particle.Species, tolerance float64) *Ledger {
	l := &Ledger{tolerance: tolerance, before: make([]float64, len(species))}
	for s, sp := range species {
		l.before[s] = sp.TotalCharge()
	}
	return l
}

func (l *Ledger) Before(s int) float64 {
	return l.before[s]
}

// Check verifies that every species ends the cycle with the charge it
// started with plus what the counters account for.
func (l *Ledger) Check(rank int, species []*particle.Species, counters []Counters) error {
	for s, sp := range species {
		after := sp.TotalCharge()
		want := l.before[s] + counters[s].Net()
		scale := math.Abs(l.before[s]) + math.Abs(after) + counters[s].magnitude()
		if diff := math.Abs(after - want); diff > math.Max(l.tolerance*scale, ledgerFloor) {
			c := counters[s]
			return &fault.Fatal{
				Invariant:   "charge ledger balances",
				Rank:        rank,
				Species:     s,
				SpeciesName: sp.Name,
				Index:       -1,
				Detail: fmt.Sprintf("before=%e after=%e expected=%e (Qion=%e Qexo=%e Qdel=%e Qrep=%e Qin=%e Qout=%e Qlost=%e)",
					l.before[s], after, want, c.Qion, c.Qexo, c.Qdel, c.Qrep, c.Qin, c.Qout, c.Qlost),
				Err: fault.ErrChargeLedger,
			}
		}
	}
	return nil
}
