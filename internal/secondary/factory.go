// Package secondary stages the electron/ion pairs born from ionizing
// collisions and appends them to the live species once every species has
// finished colliding.
package secondary

import (
	"fmt"
	"math/rand"

	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/utils"
)

type Factory struct {
	electron, ion int
	rng           *rand.Rand

	buffers [][]particle.Particle
}

func NewFactory(nSpecies, electron, ion int, rng *rand.Rand) (*Factory, error) {
	switch {
	case electron < 0 || electron >= nSpecies:
		return nil, fmt.Errorf("secondary electron species %d out of range [0, %d)", electron, nSpecies)
	case ion < 0 || ion >= nSpecies:
		return nil, fmt.Errorf("secondary ion species %d out of range [0, %d)", ion, nSpecies)
	case ion == electron:
		return nil, fmt.Errorf("secondary electron and ion share species %d", ion)
	}
	return &Factory{
		electron: electron,
		ion:      ion,
		rng:      rng,
		buffers:  make([][]particle.Particle, nSpecies),
	}, nil
}

// RecordIonization stages a secondary electron moving isotropically at the
// primary's speed and an ion at rest with the opposite charge, both at the
// primary's position.
func (f *Factory) RecordIonization(species int, primary particle.Particle) {
	speed := primary.Speed()
	ux, uy, uz := utils.UniformOnSphere(f.rng)
	f.buffers[f.electron] = append(f.buffers[f.electron], particle.Particle{
		X: primary.X, Y: primary.Y, Z: primary.Z,
		U: speed * ux, V: speed * uy, W: speed * uz,
		Q: primary.Q,
	})
	f.buffers[f.ion] = append(f.buffers[f.ion], particle.Particle{
		X: primary.X, Y: primary.Y, Z: primary.Z,
		Q: -primary.Q,
	})
}

// Materialize appends every staged particle to its species and returns the
// number created and the charge added per species. Buffers are cleared.
func (f *Factory) Materialize(species []*particle.Species) (created int, charge []float64) {
	charge = make([]float64, len(species))
	for s, buf := range f.buffers {
		if s >= len(species) {
			break
		}
		for _, p := range buf {
			species[s].Create(p)
			charge[s] += p.Q
		}
		created += len(buf)
	}
	f.Clear()
	return
}

func (f *Factory) Clear() {
	for s := range f.buffers {
		f.buffers[s] = f.buffers[s][:0]
	}
}

func (f *Factory) Pending() int {
	sizes := make([]int, len(f.buffers))
	for s, buf := range f.buffers {
		sizes[s] = len(buf)
	}
	return utils.SumSlice(sizes)
}
