// Package fields is the boundary with the field solver: per-cell moments and
// the background neutral gas the collision model scatters against.
package fields

import (
	"math"

	"github.com/wildstyl3r/exopic/internal/topology"
)

// Moments exposes per-species current and charge density on the local mesh.
type Moments interface {
	Current(species, i, j, k int) (jx, jy, jz float64)
	Density(species, i, j, k int) float64
	Dims() [3]int
}

// NearestCell maps a position to the closest local node, int((x-origin)/dx + 0.5),
// clamped to the mesh.
func NearestCell(dom *topology.Subdomain, dims [3]int, x, y, z float64) (i, j, k int) {
	pos := [3]float64{x, y, z}
	var idx [3]int
	for axis := range 3 {
		n := int((pos[axis]-dom.Bounds.Min[axis])/dom.Cell[axis] + 0.5)
		idx[axis] = min(max(n, 0), dims[axis]-1)
	}
	return idx[0], idx[1], idx[2]
}

// BulkVelocity is J/rho at the nearest cell; zero density gives zero drift.
func BulkVelocity(m Moments, dom *topology.Subdomain, species int, x, y, z float64) (u0, v0, w0 float64) {
	i, j, k := NearestCell(dom, m.Dims(), x, y, z)
	rho := m.Density(species, i, j, k)
	if rho == 0 {
		return 0, 0, 0
	}
	jx, jy, jz := m.Current(species, i, j, k)
	return jx / rho, jy / rho, jz / rho
}

type NeutralDensity interface {
	At(x, y, z float64) float64
}

type Uniform float64

func (u Uniform) At(x, y, z float64) float64 {
	return float64(u)
}

// Exosphere is a neutral atmosphere falling off exponentially with height
// above a spherical body. Inside the body the surface density holds.
type Exosphere struct {
	Center [3]float64
	Radius float64
	NSurf  float64 // density at the surface
	H      float64 // scale height
}

func (e Exosphere) At(x, y, z float64) float64 {
	dx, dy, dz := x-e.Center[0], y-e.Center[1], z-e.Center[2]
	r := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if r <= e.Radius {
		return e.NSurf
	}
	return e.NSurf * math.Exp(-(r-e.Radius)/e.H)
}
