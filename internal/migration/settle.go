// Package migration hands particles that left a subdomain to the rank that
// owns their new position, repeating until no particle is in flight anywhere.
package migration

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/wildstyl3r/exopic/internal/fault"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
)

// Outgoing holds the particles bound for each neighbour rank.
type Outgoing map[int][]particle.Particle

func (o Outgoing) Len() (n int) {
	for _, ps := range o {
		n += len(ps)
	}
	return
}

func (o Outgoing) Charge() (q float64) {
	for _, ps := range o {
		for i := range ps {
			q += ps[i].Q
		}
	}
	return
}

// Result summarizes one settle of a species. Charges are signed.
type Result struct {
	Passes int
	In     float64
	Out    float64
	Lost   float64
}

func (r *Result) Add(o Result) {
	r.Passes = max(r.Passes, o.Passes)
	r.In += o.In
	r.Out += o.Out
	r.Lost += o.Lost
}

type Migrator struct {
	dom   *topology.Subdomain
	comm  topology.Comm
	peers []int
	log   *log.Logger
}

// NewMigrator ties a subdomain to its communicator. logger may be nil.
func NewMigrator(dom *topology.Subdomain, comm topology.Comm, logger *log.Logger) *Migrator {
	return &Migrator{dom: dom, comm: comm, peers: dom.Neighbors(), log: logger}
}

// PartitionOutgoing removes every particle outside the local bounds and
// files it under the neighbour in the direction it left. Particles with no
// neighbour in that direction have left the simulation; their charge is
// returned as lost. A particle with a non-finite position, or one that
// periodic wrapping onto this rank does not bring inside within maxWraps
// wraps, stops the scan with a fault.Fatal.
func (m *Migrator) PartitionOutgoing(sp *particle.Species, maxWraps int) (out Outgoing, lost float64, err error) {
	out = Outgoing{}
	for i := 0; i < sp.Len(); {
		p := sp.At(i)
		if !finite(p) {
			return out, lost, m.stuck(sp, i, p, "position is not finite")
		}
		q, dst, rerr := m.route(p, maxWraps)
		switch {
		case rerr != nil:
			return out, lost, m.stuck(sp, i, p, rerr.Error())
		case dst == m.dom.Rank:
			sp.Set(i, q)
			i++
		case dst < 0:
			lost += p.Q
			sp.Delete(i)
		default:
			out[dst] = append(out[dst], q)
			sp.Delete(i)
		}
	}
	return
}

// route follows p through the periodic wraps that land on this rank. dst is
// the rank that owns the result, -1 when nobody does.
func (m *Migrator) route(p particle.Particle, maxWraps int) (_ particle.Particle, dst int, err error) {
	for wraps := 0; ; wraps++ {
		o := m.dom.Offset(p.X, p.Y, p.Z)
		if o == [3]int{} {
			return p, m.dom.Rank, nil
		}
		dst, ok := m.dom.Neighbor(o)
		if !ok {
			return p, -1, nil
		}
		if dst != m.dom.Rank {
			m.dom.Wrap(&p, o)
			return p, dst, nil
		}
		// periodic axis with a single rank: look at the wrapped position again
		if wraps == maxWraps {
			return p, dst, fmt.Errorf("still outside after %d periodic wraps", wraps)
		}
		before := p
		m.dom.Wrap(&p, o)
		if p == before {
			return p, dst, fmt.Errorf("too far out for a periodic wrap to move it")
		}
	}
}

func finite(p particle.Particle) bool {
	for _, x := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (m *Migrator) stuck(sp *particle.Species, idx int, p particle.Particle, detail string) error {
	return &fault.Fatal{
		Invariant:   "migration settles within the pass bound",
		Rank:        m.dom.Rank,
		Species:     sp.Index,
		SpeciesName: sp.Name,
		Index:       idx,
		Particle:    &p,
		Detail:      detail,
		Err:         fault.ErrMigrationDiverged,
	}
}

// ExchangeAndMerge runs one exchange with every neighbour and appends what
// arrives to sp.
func (m *Migrator) ExchangeAndMerge(ctx context.Context, sp *particle.Species, out Outgoing) (received int, charge float64, err error) {
	msgs := make(map[int][]byte, len(m.peers))
	for _, peer := range m.peers {
		if msgs[peer], err = Encode(sp.Index, out[peer]); err != nil {
			return
		}
	}
	in, err := m.comm.Exchange(ctx, m.peers, msgs)
	if err != nil {
		return 0, 0, fmt.Errorf("exchanging %s: %w", sp.Name, err)
	}
	for _, peer := range m.peers {
		ps, err := Decode(sp.Index, in[peer])
		if err != nil {
			return received, charge, fmt.Errorf("from rank %d: %w", peer, err)
		}
		for _, p := range ps {
			sp.Create(p)
			charge += p.Q
		}
		received += len(ps)
	}
	return
}

// Settle exchanges particles until no rank has any left outside its bounds.
// Every rank runs the same number of passes. Needing more than maxPasses is
// fatal.
func (m *Migrator) Settle(ctx context.Context, sp *particle.Species, maxPasses int) (res Result, err error) {
	if maxPasses < 1 {
		return res, fmt.Errorf("migration pass bound must be at least 1, got %d", maxPasses)
	}
	for {
		out, lost, perr := m.PartitionOutgoing(sp, maxPasses)
		failed := 0
		if perr != nil {
			failed = 1
		}
		failed, err := m.comm.AllReduce(ctx, failed)
		if err != nil {
			return res, fmt.Errorf("migrating %s: %w", sp.Name, err)
		}
		if failed > 0 {
			if perr != nil {
				return res, perr
			}
			return res, &fault.Fatal{
				Invariant:   "migration settles within the pass bound",
				Rank:        m.dom.Rank,
				Species:     sp.Index,
				SpeciesName: sp.Name,
				Index:       -1,
				Detail:      fmt.Sprintf("%d other ranks hold particles that cannot be placed", failed),
				Err:         fault.ErrMigrationDiverged,
			}
		}
		res.Lost += lost
		res.Out += out.Charge()
		pending, err := m.comm.AllReduce(ctx, out.Len())
		if err != nil {
			return res, fmt.Errorf("migrating %s: %w", sp.Name, err)
		}
		if pending == 0 {
			return res, nil
		}
		if res.Passes == maxPasses {
			return res, &fault.Fatal{
				Invariant:   "migration settles within the pass bound",
				Rank:        m.dom.Rank,
				Species:     sp.Index,
				SpeciesName: sp.Name,
				Index:       -1,
				Detail:      fmt.Sprintf("%d particles still in flight after %d passes", pending, res.Passes),
				Err:         fault.ErrMigrationDiverged,
			}
		}
		received, charge, err := m.ExchangeAndMerge(ctx, sp, out)
		if err != nil {
			return res, err
		}
		res.In += charge
		res.Passes++
		if m.log != nil {
			m.log.Printf("%s: pass %d sent %d received %d (%d in flight)", sp.Name, res.Passes, out.Len(), received, pending)
		}
	}
}
