// Package topology describes the Cartesian domain decomposition and the
// rank-to-rank messaging the particle core needs from it.
package topology

import (
	"fmt"
	"math"

	"github.com/wildstyl3r/exopic/internal/particle"
)

// Box is half-open: [Min, Max) on every axis.
type Box struct {
	Min, Max [3]float64
}

func (b Box) Contains(x, y, z float64) bool {
	return b.Min[0] <= x && x < b.Max[0] &&
		b.Min[1] <= y && y < b.Max[1] &&
		b.Min[2] <= z && z < b.Max[2]
}

func (b Box) Width(axis int) float64 {
	return b.Max[axis] - b.Min[axis]
}

type Cartesian struct {
	Dims     [3]int
	Periodic [3]bool
	Global   Box
	Cells    [3]int // global cell count per axis
}

func NewCartesian(dims [3]int, periodic [3]bool, global Box, cells [3]int) (*Cartesian, error) {
	for axis := range 3 {
		if dims[axis] < 1 {
			return nil, fmt.Errorf("axis %d: need at least one rank, got %d", axis, dims[axis])
		}
		if !(global.Width(axis) > 0) {
			return nil, fmt.Errorf("axis %d: empty global box [%g, %g)", axis, global.Min[axis], global.Max[axis])
		}
		if cells[axis] < dims[axis] || cells[axis]%dims[axis] != 0 {
			return nil, fmt.Errorf("axis %d: %d cells do not split evenly over %d ranks", axis, cells[axis], dims[axis])
		}
	}
	return &Cartesian{Dims: dims, Periodic: periodic, Global: global, Cells: cells}, nil
}

func (c *Cartesian) Size() int {
	return c.Dims[0] * c.Dims[1] * c.Dims[2]
}

func (c *Cartesian) Coords(rank int) [3]int {
	return [3]int{
		rank % c.Dims[0],
		(rank / c.Dims[0]) % c.Dims[1],
		rank / (c.Dims[0] * c.Dims[1]),
	}
}

// RankOf wraps periodic axes and reports false for coordinates outside a
// non-periodic axis.
func (c *Cartesian) RankOf(coords [3]int) (int, bool) {
	for axis := range 3 {
		if coords[axis] < 0 || coords[axis] >= c.Dims[axis] {
			if !c.Periodic[axis] {
				return -1, false
			}
			coords[axis] = (coords[axis]%c.Dims[axis] + c.Dims[axis]) % c.Dims[axis]
		}
	}
	return coords[0] + c.Dims[0]*(coords[1]+c.Dims[1]*coords[2]), true
}

func (c *Cartesian) Subdomain(rank int) Subdomain {
	coords := c.Coords(rank)
	s := Subdomain{
		Rank:     rank,
		Coords:   coords,
		Global:   c.Global,
		Periodic: c.Periodic,
	}
	for axis := range 3 {
		s.Cells[axis] = c.Cells[axis] / c.Dims[axis]
		s.Cell[axis] = c.Global.Width(axis) / float64(c.Cells[axis])
		width := c.Global.Width(axis) / float64(c.Dims[axis])
		s.Bounds.Min[axis] = c.Global.Min[axis] + float64(coords[axis])*width
		if coords[axis] == c.Dims[axis]-1 {
			s.Bounds.Max[axis] = c.Global.Max[axis]
		} else {
			s.Bounds.Max[axis] = c.Global.Min[axis] + float64(coords[axis]+1)*width
		}
	}
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				offset := [3]int{dx, dy, dz}
				r, ok := c.RankOf([3]int{coords[0] + dx, coords[1] + dy, coords[2] + dz})
				if !ok {
					r = -1
				}
				s.neighbors[OffsetIndex(offset)] = r
			}
		}
	}
	return s
}

// Subdomain is the read-only description of one rank's share of the mesh.
type Subdomain struct {
	Rank     int
	Coords   [3]int
	Bounds   Box
	Global   Box
	Cell     [3]float64
	Cells    [3]int
	Periodic [3]bool

	neighbors [27]int
}

func OffsetIndex(o [3]int) int {
	return (o[0] + 1) + 3*(o[1]+1) + 9*(o[2]+1)
}

func (s *Subdomain) Neighbor(o [3]int) (int, bool) {
	r := s.neighbors[OffsetIndex(o)]
	return r, r >= 0
}

// Neighbors lists distinct neighbour ranks other than this one.
func (s *Subdomain) Neighbors() []int {
	var out []int
	seen := map[int]struct{}{s.Rank: {}}
	for _, r := range s.neighbors {
		if r < 0 {
			continue
		}
		if _, some := seen[r]; !some {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

func (s *Subdomain) Contains(x, y, z float64) bool {
	return s.Bounds.Contains(x, y, z)
}

// Offset gives the direction (-1, 0, +1 per axis) of a point relative to the
// local bounds.
func (s *Subdomain) Offset(x, y, z float64) (o [3]int) {
	pos := [3]float64{x, y, z}
	for axis := range 3 {
		switch {
		case pos[axis] < s.Bounds.Min[axis]:
			o[axis] = -1
		case pos[axis] >= s.Bounds.Max[axis]:
			o[axis] = 1
		}
	}
	return
}

// Wrap moves p by one period along every periodic axis where it leaves
// through a face of the global box that this subdomain lies on. o is the
// direction p is leaving in, as given by Offset.
func (s *Subdomain) Wrap(p *particle.Particle, o [3]int) {
	pos := [3]*float64{&p.X, &p.Y, &p.Z}
	for axis := range 3 {
		if !s.Periodic[axis] {
			continue
		}
		x := pos[axis]
		switch {
		case o[axis] < 0 && s.Bounds.Min[axis] == s.Global.Min[axis]:
			*x += s.Global.Width(axis)
			if *x >= s.Global.Max[axis] { // -tiny + width rounds up to Max
				*x = math.Nextafter(s.Global.Max[axis], math.Inf(-1))
			}
		case o[axis] > 0 && s.Bounds.Max[axis] == s.Global.Max[axis]:
			*x -= s.Global.Width(axis)
		}
	}
}

// Volume of one cell.
func (s *Subdomain) CellVolume() float64 {
	return s.Cell[0] * s.Cell[1] * s.Cell[2]
}
