package cycle

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/wildstyl3r/exopic/internal/boundary"
	"github.com/wildstyl3r/exopic/internal/collision"
	"github.com/wildstyl3r/exopic/internal/migration"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/secondary"
)

// Parts are the per-rank collaborators of an Orchestrator. Collisions,
// Secondaries, Obstacle and Exosphere are optional.
type Parts struct {
	Rank        int
	Species     []*particle.Species
	Populations []boundary.Population // wall distribution per species
	Sources     []*boundary.Source    // exosphere source per species, nil if none

	Collisions  *collision.Engine
	Secondaries *secondary.Factory
	Obstacle    *boundary.Obstacle
	Exosphere   *boundary.Exosphere
	Injector    *boundary.Injector
	Migrator    *migration.Migrator

	MaxMigrationPasses int
	LedgerTolerance    float64

	Log     *log.Logger
	Verbose bool
}

type Report struct {
	Cycle      int
	Qrm        float64
	Counters   []Counters
	Collisions []collision.Stats
	Migration  []migration.Result
}

type Orchestrator struct {
	Parts
	stage Stage

	// OnStage is called on entering every stage.
	OnStage func(Stage)
}

func New(p Parts) (*Orchestrator, error) {
	n := len(p.Species)
	switch {
	case n == 0:
		return nil, fmt.Errorf("no species")
	case len(p.Populations) != n:
		return nil, fmt.Errorf("%d wall populations for %d species", len(p.Populations), n)
	case p.Sources != nil && len(p.Sources) != n:
		return nil, fmt.Errorf("%d exosphere sources for %d species", len(p.Sources), n)
	case p.Injector == nil:
		return nil, fmt.Errorf("no wall injector")
	case p.Migrator == nil:
		return nil, fmt.Errorf("no migrator")
	case p.MaxMigrationPasses < 1:
		return nil, fmt.Errorf("migration pass bound must be at least 1, got %d", p.MaxMigrationPasses)
	case p.LedgerTolerance < 0:
		return nil, fmt.Errorf("negative ledger tolerance %g", p.LedgerTolerance)
	case p.Collisions != nil && p.Collisions.Params().Table.HasIonizing() && p.Secondaries == nil:
		return nil, fmt.Errorf("ionizing collisions need a secondary factory")
	}
	if p.Sources == nil {
		p.Sources = make([]*boundary.Source, n)
	}
	if p.Log == nil {
		p.Log = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{Parts: p}, nil
}

func (o *Orchestrator) Stage() Stage {
	return o.stage
}

func (o *Orchestrator) enter(s Stage) {
	o.stage = s
	if o.OnStage != nil {
		o.OnStage(s)
	}
}

func (o *Orchestrator) verbosef(format string, v ...any) {
	if o.Verbose {
		o.Log.Printf(format, v...)
	}
}

func (o *Orchestrator) collisionsDue(cycle int) bool {
	return o.Collisions != nil && cycle%o.Collisions.Params().StepSkip == 0
}

func (o *Orchestrator) exosphereDue(cycle int) bool {
	return o.Exosphere != nil && cycle%o.Exosphere.StepSkip == 0
}

// Step runs every stage of one cycle over all species and checks the charge
// ledger. Each stage finishes for every species before the next begins.
func (o *Orchestrator) Step(ctx context.Context, cycle int) (Report, error) {
	n := len(o.Species)
	r := Report{
		Cycle:      cycle,
		Qrm:        math.Inf(1),
		Counters:   make([]Counters, n),
		Collisions: make([]collision.Stats, n),
		Migration:  make([]migration.Result, n),
	}
	defer o.enter(Idle)
	if o.Secondaries != nil {
		if staged := o.Secondaries.Pending(); staged > 0 {
			return r, fmt.Errorf("rank %d cycle %d: %d secondaries staged before collisions", o.Rank, cycle, staged)
		}
	}
	ledger := NewLedger(o.Species, o.LedgerTolerance)

	if o.collisionsDue(cycle) {
		o.enter(Collide)
		for s, sp := range o.Species {
			stats, err := o.Collisions.Collide(sp)
			if err != nil {
				return r, err
			}
			r.Collisions[s] = stats
			if stats.Likely > 0 {
				o.verbosef("cycle %d: %s: %d particles with collision probability above 0.1", cycle, sp.Name, stats.Likely)
			}
		}
	}

	o.enter(MaterializeSecondaries)
	if o.Secondaries != nil {
		created, charge := o.Secondaries.Materialize(o.Species)
		for s := range charge {
			r.Counters[s].Qion = charge[s]
		}
		if created > 0 {
			o.verbosef("cycle %d: %d particles from electron impact ionization", cycle, created)
		}
	}

	if o.exosphereDue(cycle) {
		o.enter(InjectExosphere)
		for s, sp := range o.Species {
			if o.Sources[s] == nil {
				continue
			}
			r.Counters[s].Qexo = o.Injector.InjectExosphere(sp, *o.Sources[s], *o.Exosphere)
			o.verbosef("cycle %d: %s: photoionization Q=%e", cycle, sp.Name, r.Counters[s].Qexo)
		}
	}

	o.enter(CountBoundaryCrossings)
	counts := make([]float64, n)
	if o.Obstacle != nil && o.Obstacle.Balance {
		for s, sp := range o.Species {
			counts[s] = o.Obstacle.RotateAndCount(sp, cycle)
			r.Counters[s].Count = counts[s]
		}
	}

	o.enter(ComputeQrm)
	if o.Obstacle != nil {
		r.Qrm = o.Obstacle.ChargeBudget(counts)
	}

	o.enter(DeleteInsideObstacle)
	if o.Obstacle != nil {
		for s, sp := range o.Species {
			r.Counters[s].Qdel = o.Obstacle.DeleteInsideSphere(sp, cycle, r.Qrm)
		}
	}

	o.enter(Repopulate)
	for s, sp := range o.Species {
		r.Counters[s].Qrep = o.Injector.Repopulate(sp, o.Populations[s])
		o.verbosef("cycle %d: %s: walls Q=%e", cycle, sp.Name, r.Counters[s].Qrep)
	}

	o.enter(Migrate)
	for s, sp := range o.Species {
		res, err := o.Migrator.Settle(ctx, sp, o.MaxMigrationPasses)
		if err != nil {
			return r, err
		}
		r.Migration[s] = res
		r.Counters[s].Qin, r.Counters[s].Qout, r.Counters[s].Qlost = res.In, res.Out, res.Lost
		r.Counters[s].Particles = sp.Len()
	}

	return r, ledger.Check(o.Rank, o.Species, r.Counters)
}
