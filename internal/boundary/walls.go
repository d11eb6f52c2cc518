package boundary

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/wildstyl3r/exopic/internal/constants"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
	"github.com/wildstyl3r/exopic/internal/utils"
)

type WallKind string

const (
	Open    WallKind = "open"
	Reflect WallKind = "reflect"
)

// Walls holds the kind of every face of the global box, indexed [axis][side]
// with side 0 at Min and 1 at Max, and the depth in cells of the layer that
// is refilled behind open faces. Periodic axes have no walls.
type Walls struct {
	Kinds [3][2]WallKind
	Layer int
}

func (w Walls) Validate() error {
	for axis := range w.Kinds {
		for side, k := range w.Kinds[axis] {
			if k != Open && k != Reflect {
				return fmt.Errorf("wall %d/%d: unknown kind %q", axis, side, k)
			}
		}
	}
	if w.Layer < 1 {
		return fmt.Errorf("repopulation layer must be at least one cell deep, got %d", w.Layer)
	}
	return nil
}

// Population is the distribution a species is kept at along open walls.
type Population struct {
	Rho     float64
	Npcel   [3]int
	Drift   [3]float64
	Thermal [3]float64
}

func (p Population) perCell() int {
	return p.Npcel[0] * p.Npcel[1] * p.Npcel[2]
}

// Injector creates and removes particles of one rank at the box walls.
type Injector struct {
	dom    *topology.Subdomain
	walls  Walls
	rng    *rand.Rand
	global [3]int // cells of the whole box along each axis
}

func NewInjector(dom *topology.Subdomain, walls Walls, rng *rand.Rand) (*Injector, error) {
	if err := walls.Validate(); err != nil {
		return nil, err
	}
	in := &Injector{dom: dom, walls: walls, rng: rng}
	for axis := range 3 {
		in.global[axis] = int(math.Round(dom.Global.Width(axis) / dom.Cell[axis]))
		if !dom.Periodic[axis] && 2*walls.Layer > in.global[axis] {
			return nil, fmt.Errorf("axis %d: layer of %d cells does not fit in %d cells", axis, walls.Layer, in.global[axis])
		}
	}
	return in, nil
}

func (in *Injector) open(axis, side int) bool {
	return !in.dom.Periodic[axis] && in.walls.Kinds[axis][side] == Open
}

// inLayer reports whether a position lies in the repopulation layer of any
// open face.
func (in *Injector) inLayer(pos [3]float64) bool {
	g := in.dom.Global
	for axis := range 3 {
		depth := float64(in.walls.Layer) * in.dom.Cell[axis]
		if in.open(axis, 0) && pos[axis] < g.Min[axis]+depth {
			return true
		}
		if in.open(axis, 1) && pos[axis] >= g.Max[axis]-depth {
			return true
		}
	}
	return false
}

// reflect mirrors p back across reflecting faces. It reports false when p is
// beyond an open face.
func (in *Injector) reflect(p *particle.Particle) bool {
	g := in.dom.Global
	pos := [3]*float64{&p.X, &p.Y, &p.Z}
	vel := [3]*float64{&p.U, &p.V, &p.W}
	for axis := range 3 {
		if in.dom.Periodic[axis] {
			continue
		}
		x := pos[axis]
		switch {
		case *x < g.Min[axis]:
			if in.walls.Kinds[axis][0] == Open {
				return false
			}
			*x = 2*g.Min[axis] - *x
			*vel[axis] = -*vel[axis]
		case *x >= g.Max[axis]:
			if in.walls.Kinds[axis][1] == Open {
				return false
			}
			*x = math.Min(2*g.Max[axis]-*x, math.Nextafter(g.Max[axis], math.Inf(-1)))
			*vel[axis] = -*vel[axis]
		}
	}
	return true
}

// Repopulate deletes particles that escaped through open faces together with
// everything in the repopulation layer, reflects particles off reflecting
// faces and refills the layer cells of this subdomain from pop. Returns the
// net charge change.
func (in *Injector) Repopulate(sp *particle.Species, pop Population) float64 {
	var removed float64
	for i := 0; i < sp.Len(); {
		p := sp.At(i)
		if !in.reflect(&p) || in.inLayer([3]float64{p.X, p.Y, p.Z}) {
			removed += p.Q
			sp.Delete(i)
			continue
		}
		sp.Set(i, p)
		i++
	}
	injected := in.populate(sp, pop, true)
	return injected - removed
}

// Fill populates every cell of the subdomain from pop.
func (in *Injector) Fill(sp *particle.Species, pop Population) float64 {
	return in.populate(sp, pop, false)
}

func (in *Injector) populate(sp *particle.Species, pop Population, layerOnly bool) (injected float64) {
	npcel := pop.perCell()
	if npcel <= 0 || pop.Rho == 0 {
		return 0
	}
	dom := in.dom
	q := utils.Sign(sp.Qom) * math.Abs(pop.Rho) * dom.CellVolume() / (constants.FourPi * float64(npcel))
	for i := range dom.Cells[0] {
		for j := range dom.Cells[1] {
			for k := range dom.Cells[2] {
				origin := [3]float64{
					dom.Bounds.Min[0] + float64(i)*dom.Cell[0],
					dom.Bounds.Min[1] + float64(j)*dom.Cell[1],
					dom.Bounds.Min[2] + float64(k)*dom.Cell[2],
				}
				centre := [3]float64{origin[0] + 0.5*dom.Cell[0], origin[1] + 0.5*dom.Cell[1], origin[2] + 0.5*dom.Cell[2]}
				if layerOnly && !in.inLayer(centre) {
					continue
				}
				injected += in.fillCell(sp, pop, origin, q)
			}
		}
	}
	return
}

// fillCell places Npcel particles on a jittered lattice inside one cell.
func (in *Injector) fillCell(sp *particle.Species, pop Population, origin [3]float64, q float64) (injected float64) {
	cell := in.dom.Cell
	for a := range pop.Npcel[0] {
		for b := range pop.Npcel[1] {
			for c := range pop.Npcel[2] {
				u, v, w := utils.Maxwellian(in.rng, pop.Drift, pop.Thermal)
				sp.Create(particle.Particle{
					X: origin[0] + (float64(a)+in.rng.Float64())/float64(pop.Npcel[0])*cell[0],
					Y: origin[1] + (float64(b)+in.rng.Float64())/float64(pop.Npcel[1])*cell[1],
					Z: origin[2] + (float64(c)+in.rng.Float64())/float64(pop.Npcel[2])*cell[2],
					U: u, V: v, W: w,
					Q: q,
				})
				injected += q
			}
		}
	}
	return
}
