package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/wildstyl3r/exopic/internal/boundary"
	"github.com/wildstyl3r/exopic/internal/collision"
	"github.com/wildstyl3r/exopic/internal/config"
	"github.com/wildstyl3r/exopic/internal/cycle"
	"github.com/wildstyl3r/exopic/internal/diagnostics"
	"github.com/wildstyl3r/exopic/internal/fields"
	"github.com/wildstyl3r/exopic/internal/migration"
	"github.com/wildstyl3r/exopic/internal/mover"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/secondary"
	"github.com/wildstyl3r/exopic/internal/topology"
)

// seeds of neighbouring ranks must not be correlated
const seedStride = 7919

type rank struct {
	dom      *topology.Subdomain
	mesh     *fields.Mesh
	injector *boundary.Injector
	orch     *cycle.Orchestrator
	dt       float64
}

func newRank(cfg *config.Config, cart *topology.Cartesian, world *topology.World, id int, logOut io.Writer) (*rank, error) {
	dom := cart.Subdomain(id)
	rng := rand.New(rand.NewSource(cfg.Seed + int64(id)*seedStride))
	logger := log.New(logOut, fmt.Sprintf("[rank %d] ", id), log.Ltime|log.Lmicroseconds)
	var chatter *log.Logger
	if cfg.Verbose {
		chatter = logger
	}

	species := make([]*particle.Species, len(cfg.Species))
	populations := make([]boundary.Population, len(cfg.Species))
	sources := make([]*boundary.Source, len(cfg.Species))
	for i, sp := range cfg.Species {
		store, err := particle.NewStore(particle.Layout(cfg.Layout), 0)
		if err != nil {
			return nil, err
		}
		species[i] = particle.NewSpecies(i, sp.Name, sp.Qom, id, store)
		populations[i] = sp.Population()
		sources[i] = sp.Source()
	}

	injector, err := boundary.NewInjector(&dom, cfg.WallKinds(), rng)
	if err != nil {
		return nil, fmt.Errorf("rank %d: %w", id, err)
	}
	r := &rank{dom: &dom, mesh: fields.NewMesh(&dom, len(species)), injector: injector, dt: cfg.Dt}

	parts := cycle.Parts{
		Rank:               id,
		Species:            species,
		Populations:        populations,
		Sources:            sources,
		Injector:           injector,
		Migrator:           migration.NewMigrator(&dom, world.Comm(id), chatter),
		MaxMigrationPasses: cfg.MaxMigrationPasses,
		LedgerTolerance:    cfg.LedgerTolerance,
		Log:                logger,
		Verbose:            cfg.Verbose,
	}
	if cfg.Collisions.Enabled {
		electron, ion, err := cfg.SecondaryIndices()
		if err != nil {
			return nil, err
		}
		factory, err := secondary.NewFactory(len(species), electron, ion, rng)
		if err != nil {
			return nil, err
		}
		engine, err := collision.NewEngine(cfg.CollisionParams(), &dom, cfg.Neutrals(), r.mesh, factory, rng)
		if err != nil {
			return nil, err
		}
		parts.Collisions, parts.Secondaries = engine, factory
	}
	if cfg.Obstacle.Enabled {
		parts.Obstacle = &boundary.Obstacle{Sphere: cfg.Sphere(), Balance: cfg.Obstacle.Balance, Log: chatter}
		parts.Exosphere = cfg.ExosphereModel()
	}

	if r.orch, err = cycle.New(parts); err != nil {
		return nil, fmt.Errorf("rank %d: %w", id, err)
	}
	return r, nil
}

// run fills the box and advances cycles 1..cycles, publishing every report.
func (r *rank) run(ctx context.Context, cycles int, reports chan<- cycle.Report) error {
	for s, sp := range r.orch.Species {
		r.injector.Fill(sp, r.orch.Populations[s])
	}
	for c := 1; c <= cycles; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, sp := range r.orch.Species {
			mover.Ballistic{}.Push(sp, r.dt)
			r.mesh.Deposit(r.dom, sp)
		}
		report, err := r.orch.Step(ctx, c)
		if err != nil {
			return err
		}
		select {
		case reports <- report:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// simulate runs every rank of the decomposition as a goroutine and gathers
// their reports. progress, when set, is called each time all ranks have
// reported another cycle. The returned run holds whatever was gathered, also
// on error.
func simulate(ctx context.Context, cfg *config.Config, logOut io.Writer, progress func(done int)) (*diagnostics.Run, error) {
	run := diagnostics.NewRun(cfg.SpeciesNames())
	cart, err := cfg.Cartesian()
	if err != nil {
		return run, err
	}
	world := topology.NewWorld(cart.Size())
	ranks := make([]*rank, cart.Size())
	for id := range ranks {
		if ranks[id], err = newRank(cfg, cart, world, id, logOut); err != nil {
			return run, err
		}
	}

	dataflow := make(chan cycle.Report)
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranks {
		g.Go(func() error {
			return r.run(gctx, cfg.Cycles, dataflow)
		})
	}

	// chan killer
	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = g.Wait()
		close(dataflow)
		close(done)
	}()

	counter := 0
	for report := range dataflow {
		run.Add(report)
		counter++
		if progress != nil && counter%len(ranks) == 0 {
			progress(counter / len(ranks))
		}
	}
	<-done
	return run, runErr
}
