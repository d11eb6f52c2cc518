package fields

import (
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
)

// Mesh stores nearest-grid-point moments on the local nodes. It stands in for
// the solver's moment gatherer.
type Mesh struct {
	dims       [3]int
	rho        [][]float64 // [species][node]
	jx, jy, jz [][]float64
}

func NewMesh(dom *topology.Subdomain, nSpecies int) *Mesh {
	m := &Mesh{dims: [3]int{dom.Cells[0] + 1, dom.Cells[1] + 1, dom.Cells[2] + 1}}
	n := m.dims[0] * m.dims[1] * m.dims[2]
	alloc := func() [][]float64 {
		out := make([][]float64, nSpecies)
		for s := range out {
			out[s] = make([]float64, n)
		}
		return out
	}
	m.rho, m.jx, m.jy, m.jz = alloc(), alloc(), alloc(), alloc()
	return m
}

func (m *Mesh) Dims() [3]int {
	return m.dims
}

func (m *Mesh) index(i, j, k int) int {
	return i + m.dims[0]*(j+m.dims[1]*k)
}

func (m *Mesh) Current(species, i, j, k int) (jx, jy, jz float64) {
	n := m.index(i, j, k)
	return m.jx[species][n], m.jy[species][n], m.jz[species][n]
}

func (m *Mesh) Density(species, i, j, k int) float64 {
	return m.rho[species][m.index(i, j, k)]
}

// Deposit recomputes the moments of sp from scratch.
func (m *Mesh) Deposit(dom *topology.Subdomain, sp *particle.Species) {
	rho, jx, jy, jz := m.rho[sp.Index], m.jx[sp.Index], m.jy[sp.Index], m.jz[sp.Index]
	clear(rho)
	clear(jx)
	clear(jy)
	clear(jz)
	inv := 1. / dom.CellVolume()
	for idx := range sp.Len() {
		p := sp.At(idx)
		i, j, k := NearestCell(dom, m.dims, p.X, p.Y, p.Z)
		n := m.index(i, j, k)
		q := p.Q * inv
		rho[n] += q
		jx[n] += q * p.U
		jy[n] += q * p.V
		jz[n] += q * p.W
	}
}
