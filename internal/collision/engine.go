// Package collision applies a mean-field Monte Carlo electron-neutral
// collision model: each electron collides with the background gas with a
// Poisson probability over the step, loses the energy of the highest process
// it can afford, and ionizing processes hand a secondary pair to a Recorder.
package collision

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/wildstyl3r/exopic/internal/constants"
	"github.com/wildstyl3r/exopic/internal/fault"
	"github.com/wildstyl3r/exopic/internal/fields"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
)

type Recorder interface {
	RecordIonization(species int, primary particle.Particle)
}

type Params struct {
	CrossSection float64 // code units
	Dt           float64
	StepSkip     int     // collisions run every StepSkip cycles
	RealQom      float64 // qom of a physical electron, -1836 when protons have qom = 1
	Table        Table
}

type Stats struct {
	Tested   int
	Collided int
	Ionizing int
	Likely   int // draws with p > 0.1
}

func (s *Stats) Add(o Stats) {
	s.Tested += o.Tested
	s.Collided += o.Collided
	s.Ionizing += o.Ionizing
	s.Likely += o.Likely
}

type Engine struct {
	params   Params
	rank     int
	dom      *topology.Subdomain
	neutrals fields.NeutralDensity
	moments  fields.Moments
	recorder Recorder
	rng      *rand.Rand
}

// NewEngine wires the collision model to its collaborators. moments may be
// nil, in which case every bulk velocity is zero.
func NewEngine(params Params, dom *topology.Subdomain, neutrals fields.NeutralDensity, moments fields.Moments, recorder Recorder, rng *rand.Rand) (*Engine, error) {
	if params.RealQom == 0 {
		params.RealQom = constants.RealElectronQom
	}
	switch {
	case params.CrossSection < 0:
		return nil, fmt.Errorf("negative cross section %g", params.CrossSection)
	case !(params.Dt > 0):
		return nil, fmt.Errorf("time step must be positive, got %g", params.Dt)
	case params.StepSkip < 1:
		return nil, fmt.Errorf("collision step skip must be at least 1, got %d", params.StepSkip)
	case params.RealQom > 0:
		return nil, fmt.Errorf("real electron qom must be negative, got %g", params.RealQom)
	case neutrals == nil:
		return nil, fmt.Errorf("no neutral density profile")
	case recorder == nil && params.Table.HasIonizing():
		return nil, fmt.Errorf("ionizing processes configured without a secondary recorder")
	}
	return &Engine{
		params:   params,
		rank:     dom.Rank,
		dom:      dom,
		neutrals: neutrals,
		moments:  moments,
		recorder: recorder,
		rng:      rng,
	}, nil
}

func (e *Engine) Params() Params {
	return e.params
}

// Probability of at least one collision in a step of a Poisson process,
// 1 - exp(-n*sigma*v*dt*stepSkip). The result stays below one.
func Probability(nNeutral, crossSection, speed, dt float64, stepSkip int) float64 {
	tau := nNeutral * crossSection * speed * dt * float64(stepSkip)
	if !(tau > 0) {
		return 0
	}
	p := -math.Expm1(-tau)
	if p >= 1 {
		p = math.Nextafter(1, 0)
	}
	return p
}

func (e *Engine) probability(nNeutral, speed float64, stats *Stats) float64 {
	p := Probability(nNeutral, e.params.CrossSection, speed, e.params.Dt, e.params.StepSkip)
	if p > constants.LikelyCollisionProbability {
		stats.Likely++
	}
	return p
}

// ScaledSpeed corrects the numerically heavy electron: the velocity relative
// to the bulk flow is stretched by ratio before taking the magnitude.
func ScaledSpeed(p particle.Particle, ratio, u0, v0, w0 float64) float64 {
	u := math.FMA(p.U-u0, ratio, u0)
	v := math.FMA(p.V-v0, ratio, v0)
	w := math.FMA(p.W-w0, ratio, w0)
	return math.Sqrt(u*u + v*v + w*w)
}

// Collide runs one collision pass over sp. Species with non-negative qom are
// not collided.
func (e *Engine) Collide(sp *particle.Species) (stats Stats, err error) {
	if !sp.Electronic() {
		return
	}
	ratio := math.Sqrt(e.params.RealQom / sp.Qom)
	for idx := range sp.Len() {
		p := sp.At(idx)
		nNeutral := e.neutrals.At(p.X, p.Y, p.Z)
		var u0, v0, w0 float64
		if e.moments != nil {
			u0, v0, w0 = fields.BulkVelocity(e.moments, e.dom, sp.Index, p.X, p.Y, p.Z)
		}
		prob := e.probability(nNeutral, ScaledSpeed(p, ratio, u0, v0, w0), &stats)
		stats.Tested++
		if e.rng.Float64() >= prob {
			continue
		}
		stats.Collided++
		ionizing, err := e.scatter(sp, idx, p)
		if err != nil {
			return stats, err
		}
		if ionizing {
			stats.Ionizing++
		}
	}
	return stats, nil
}

func (e *Engine) scatter(sp *particle.Species, idx int, p particle.Particle) (bool, error) {
	energy := p.KineticEnergy(sp.Qom)
	if energy == 0 {
		return false, nil
	}
	loss, ionizing := e.params.Table.Loss(energy)
	if ionizing {
		// the freed electron takes half of what is left above the threshold
		loss += 0.5 * (energy - loss)
	}
	remaining, err := remainingEnergy(energy, loss)
	if err != nil {
		return false, &fault.Fatal{
			Invariant:   "post-collision energy is non-negative",
			Rank:        e.rank,
			Species:     sp.Index,
			SpeciesName: sp.Name,
			Index:       idx,
			Particle:    &p,
			Detail:      fmt.Sprintf("E=%g Eth=%g E-Eth=%g: threshold table inconsistent with achievable energies", energy, loss, energy-loss),
			Err:         err,
		}
	}
	p.ScaleVelocity(math.Sqrt(remaining / energy))
	sp.Set(idx, p)
	if ionizing {
		e.recorder.RecordIonization(sp.Index, p)
	}
	return ionizing, nil
}

func remainingEnergy(energy, loss float64) (float64, error) {
	remaining := energy - loss
	if remaining < 0 || math.IsNaN(remaining) {
		return 0, fault.ErrNegativeEnergy
	}
	return remaining, nil
}
