// Package diagnostics gathers the per-rank cycle reports of a run and writes
// the selected per-cycle tables.
package diagnostics

import (
	"math"
	"slices"
	"sync"

	"github.com/wildstyl3r/exopic/internal/collision"
	"github.com/wildstyl3r/exopic/internal/cycle"
	"github.com/wildstyl3r/exopic/internal/migration"
	"github.com/wildstyl3r/exopic/internal/utils"
)

// Row is one cycle summed over every rank.
type Row struct {
	Cycle      int
	Ranks      int
	Qrm        float64 // smallest budget of any rank
	Counters   []cycle.Counters
	Collisions []collision.Stats
	Migration  []migration.Result
}

type Run struct {
	mu      sync.Mutex
	species []string
	rows    map[int]*Row
}

func NewRun(species []string) *Run {
	return &Run{species: species, rows: map[int]*Row{}}
}

func (r *Run) Species() []string {
	return r.species
}

// Add folds one rank's report into the row of its cycle.
func (r *Run) Add(rep cycle.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[rep.Cycle]
	if !ok {
		n := len(r.species)
		row = &Row{
			Cycle:      rep.Cycle,
			Qrm:        math.Inf(1),
			Counters:   make([]cycle.Counters, n),
			Collisions: make([]collision.Stats, n),
			Migration:  make([]migration.Result, n),
		}
		r.rows[rep.Cycle] = row
	}
	row.Ranks++
	row.Qrm = math.Min(row.Qrm, rep.Qrm)
	for s := range rep.Counters {
		row.Counters[s].Add(rep.Counters[s])
		row.Collisions[s].Add(rep.Collisions[s])
		row.Migration[s].Add(rep.Migration[s])
	}
}

// Rows in cycle order.
func (r *Run) Rows() []*Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Row, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b *Row) int { return a.Cycle - b.Cycle })
	return out
}

// Totals sums the counters of every cycle per species.
func (r *Run) Totals() []cycle.Counters {
	totals := make([]cycle.Counters, len(r.species))
	for _, row := range r.Rows() {
		for s := range row.Counters {
			particles := row.Counters[s].Particles
			totals[s].Add(row.Counters[s])
			totals[s].Particles = particles
		}
	}
	return totals
}

// Passes is the mean and unbiased variance over cycles of the settle passes
// taken by the slowest species.
func (r *Run) Passes() (mean, variance float64) {
	rows := r.Rows()
	if len(rows) < 2 {
		for _, row := range rows {
			mean = float64(slowest(row))
		}
		return
	}
	passes := make([]int, len(rows))
	for i, row := range rows {
		passes[i] = slowest(row)
	}
	return utils.MeanAndVariance(passes, true)
}

func slowest(row *Row) (passes int) {
	for _, m := range row.Migration {
		passes = max(passes, m.Passes)
	}
	return
}
