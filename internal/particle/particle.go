// Package particle holds macro-particle records and the per-species containers
// that own them.
package particle

import "math"

type Particle struct {
	X, Y, Z float64 // position
	U, V, W float64 // velocity
	Q       float64 // charge-weight, sign included
	ID      uint64
}

func (p *Particle) Speed() float64 {
	return math.Sqrt(p.U*p.U + p.V*p.V + p.W*p.W)
}

// KineticEnergy in code units, 0.5*|v|^2/|qom|
func (p *Particle) KineticEnergy(qom float64) float64 {
	return 0.5 * (p.U*p.U + p.V*p.V + p.W*p.W) / math.Abs(qom)
}

func (p *Particle) ScaleVelocity(f float64) {
	p.U *= f
	p.V *= f
	p.W *= f
}

// Columns is the columnar layout handed to checkpoint writers.
type Columns struct {
	X, Y, Z []float64
	U, V, W []float64
	Q       []float64
	ID      []uint64
}

func (c *Columns) Len() int {
	return len(c.Q)
}
