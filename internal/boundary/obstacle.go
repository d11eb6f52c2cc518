// Package boundary applies the particle boundary conditions of a cycle: the
// absorbing, charge-balanced obstacle, the outer walls of the box with their
// repopulation layer, and photoionization of the obstacle's exosphere.
package boundary

import (
	"log"
	"math"

	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/utils"
)

type Sphere struct {
	Center [3]float64
	Radius float64
}

// NewSphere shifts the obstacle centre along z by the planet offset.
func NewSphere(center [3]float64, radius, planetOffset float64) Sphere {
	center[2] += planetOffset
	return Sphere{Center: center, Radius: radius}
}

func (s Sphere) Inside(x, y, z float64) bool {
	dx, dy, dz := x-s.Center[0], y-s.Center[1], z-s.Center[2]
	return dx*dx+dy*dy+dz*dz < s.Radius*s.Radius
}

// normal is the outward unit vector and distance of a point from the centre.
// The centre itself is given the +z normal.
func (s Sphere) normal(x, y, z float64) (n [3]float64, r float64) {
	d := [3]float64{x - s.Center[0], y - s.Center[1], z - s.Center[2]}
	r = math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	if r == 0 {
		return [3]float64{0, 0, 1}, 0
	}
	for i := range d {
		n[i] = d[i] / r
	}
	return
}

// Obstacle absorbs particles that end a step inside the sphere. With Balance
// set, only as much charge is absorbed as the opposite-sign species can match
// and the rest is reflected.
type Obstacle struct {
	Sphere
	Balance bool
	Log     *log.Logger // nil for a quiet obstacle
}

// RotateAndCount sums the charge of the species inside the obstacle and turns
// every inward velocity into its specular reflection. Positions are left
// alone so that deletion still finds the particles inside.
func (o *Obstacle) RotateAndCount(sp *particle.Species, cycle int) (count float64) {
	inside := 0
	for i := range sp.Len() {
		p := sp.At(i)
		if !o.Inside(p.X, p.Y, p.Z) {
			continue
		}
		inside++
		count += p.Q
		n, r := o.normal(p.X, p.Y, p.Z)
		if r == 0 {
			continue
		}
		if vr := p.U*n[0] + p.V*n[1] + p.W*n[2]; vr < 0 {
			p.U -= 2 * vr * n[0]
			p.V -= 2 * vr * n[1]
			p.W -= 2 * vr * n[2]
			sp.Set(i, p)
		}
	}
	if o.Log != nil && inside > 0 {
		o.Log.Printf("cycle %d: %s: %d particles inside obstacle, Q=%e", cycle, sp.Name, inside, count)
	}
	return
}

// ChargeBudget is the charge each species may lose to the obstacle this
// cycle: min(sum of positive counts, -sum of negative counts). Without
// balancing the obstacle absorbs everything.
func (o *Obstacle) ChargeBudget(counts []float64) float64 {
	if !o.Balance {
		return math.Inf(1)
	}
	plus, minus := utils.SumSigned(counts)
	return math.Min(plus, -minus)
}

// DeleteInsideSphere removes particles inside the obstacle in index order as
// long as the magnitude of the removed charge stays within qrm. The same qrm
// bounds every species separately. Particles that do not fit are mirrored out
// to 2R - r. Returns the signed charge removed.
func (o *Obstacle) DeleteInsideSphere(sp *particle.Species, cycle int, qrm float64) (removed float64) {
	tol := 1e-12 * math.Max(1, math.Abs(qrm))
	kept := 0
	for i := 0; i < sp.Len(); {
		p := sp.At(i)
		if !o.Inside(p.X, p.Y, p.Z) {
			i++
			continue
		}
		if math.Abs(removed+p.Q) <= qrm+tol {
			removed += p.Q
			sp.Delete(i)
			continue
		}
		n, r := o.normal(p.X, p.Y, p.Z)
		out := 2*o.Radius - r
		p.X = o.Center[0] + n[0]*out
		p.Y = o.Center[1] + n[1]*out
		p.Z = o.Center[2] + n[2]*out
		sp.Set(i, p)
		kept++
		i++
	}
	if o.Log != nil && (removed != 0 || kept > 0) {
		o.Log.Printf("cycle %d: %s: obstacle removed Q=%e, reflected %d", cycle, sp.Name, removed, kept)
	}
	return
}
