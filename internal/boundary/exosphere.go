package boundary

import (
	"fmt"
	"math"

	"github.com/wildstyl3r/exopic/internal/constants"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/utils"
)

// Exosphere is the neutral shell around the obstacle, n(r) = NSurf*exp(-(r-R)/H)
// for R <= r <= Rmax, that photoionization turns into new particles.
type Exosphere struct {
	Sphere   Sphere
	NSurf    float64
	H        float64
	Rmax     float64
	Dt       float64
	StepSkip int
}

func (e Exosphere) Validate() error {
	switch {
	case !(e.H > 0):
		return fmt.Errorf("exosphere scale height must be positive, got %g", e.H)
	case !(e.Rmax > e.Sphere.Radius):
		return fmt.Errorf("exosphere outer radius %g must exceed the obstacle radius %g", e.Rmax, e.Sphere.Radius)
	case e.NSurf < 0:
		return fmt.Errorf("negative exosphere surface density %g", e.NSurf)
	case e.StepSkip < 1:
		return fmt.Errorf("exosphere step skip must be at least 1, got %d", e.StepSkip)
	}
	return nil
}

// Source describes how a species is produced from the exosphere.
type Source struct {
	IonizationFrequency float64
	Weight              float64 // |q| of one injected particle
	Thermal             float64
}

// shell is the integral of r^2 exp(-(r-R)/h) from R to R+s.
func (e Exosphere) shell(s float64) float64 {
	R, h := e.Sphere.Radius, e.H
	at := func(s float64) float64 {
		r := R + s
		return math.Exp(-s/h) * (r*r + 2*h*r + 2*h*h)
	}
	return h * (at(0) - at(s))
}

// Expected number of particles of the given weight born in the whole shell
// over one injection interval.
func (e Exosphere) Expected(src Source) float64 {
	if !(src.Weight > 0) {
		return 0
	}
	volume := constants.FourPi * e.shell(e.Rmax-e.Sphere.Radius)
	return e.Dt * float64(e.StepSkip) * src.IonizationFrequency * e.NSurf * volume / src.Weight
}

// radius draws a radius from the density-weighted shell by inverting its
// cumulative distribution.
func (in *Injector) radius(e Exosphere) float64 {
	depth := e.Rmax - e.Sphere.Radius
	total := e.shell(depth)
	u := in.rng.Float64()
	_, s := utils.BinarySearch(func(s float64) bool {
		return e.shell(s) >= u*total
	}, 0, depth, depth*1e-12)
	return e.Sphere.Radius + s
}

// InjectExosphere adds the photoionization products of one interval. The
// whole shell is sampled on every rank and each rank keeps the particles
// that fall in its own subdomain. Returns the injected charge.
func (in *Injector) InjectExosphere(sp *particle.Species, src Source, e Exosphere) (injected float64) {
	expected := e.Expected(src)
	n := int(expected)
	if in.rng.Float64() < expected-float64(n) {
		n++
	}
	q := utils.Sign(sp.Qom) * src.Weight
	thermal := [3]float64{src.Thermal, src.Thermal, src.Thermal}
	for range n {
		r := in.radius(e)
		nx, ny, nz := utils.UniformOnSphere(in.rng)
		x := e.Sphere.Center[0] + r*nx
		y := e.Sphere.Center[1] + r*ny
		z := e.Sphere.Center[2] + r*nz
		u, v, w := utils.Maxwellian(in.rng, [3]float64{}, thermal)
		if !in.dom.Contains(x, y, z) {
			continue
		}
		sp.Create(particle.Particle{X: x, Y: y, Z: z, U: u, V: v, W: w, Q: q})
		injected += q
	}
	return
}
