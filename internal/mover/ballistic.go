// Package mover advances particle positions between boundary passes.
package mover

import (
	"gonum.org/v1/gonum/floats"

	"github.com/wildstyl3r/exopic/internal/particle"
)

// Ballistic moves particles in straight lines, x += v*dt. It stands in for a
// field-driven mover.
type Ballistic struct{}

func (Ballistic) Push(sp *particle.Species, dt float64) {
	if soa, ok := sp.Store.(*particle.SoA); ok {
		c := soa.Columns()
		floats.AddScaled(c.X, dt, c.U)
		floats.AddScaled(c.Y, dt, c.V)
		floats.AddScaled(c.Z, dt, c.W)
		return
	}
	for i := range sp.Len() {
		p := sp.At(i)
		p.X += p.U * dt
		p.Y += p.V * dt
		p.Z += p.W * dt
		sp.Set(i, p)
	}
}
