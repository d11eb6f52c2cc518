package boundary

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
)

func box(t *testing.T, dims [3]int, rank int, min, max float64, cells int) *topology.Subdomain {
	c, err := topology.NewCartesian(dims, [3]bool{}, topology.Box{
		Min: [3]float64{min, min, min},
		Max: [3]float64{max, max, max},
	}, [3]int{cells, cells, cells})
	require.NoError(t, err)
	dom := c.Subdomain(rank)
	return &dom
}

func xOpen() Walls {
	return Walls{Kinds: [3][2]WallKind{{Open, Open}, {Reflect, Reflect}, {Reflect, Reflect}}, Layer: 1}
}

func TestNewInjectorValidation(t *testing.T) {
	dom := box(t, [3]int{1, 1, 1}, 0, 0, 4, 4)
	rng := rand.New(rand.NewSource(1))
	w := xOpen()
	w.Layer = 0
	_, err := NewInjector(dom, w, rng)
	assert.Error(t, err)
	w = xOpen()
	w.Kinds[1][0] = "sticky"
	_, err = NewInjector(dom, w, rng)
	assert.Error(t, err)
	w = xOpen()
	w.Layer = 3
	_, err = NewInjector(dom, w, rng)
	assert.Error(t, err, "two layers of 3 cells do not fit in 4")
	_, err = NewInjector(dom, xOpen(), rng)
	assert.NoError(t, err)
}

func TestFillAndRepopulate(t *testing.T) {
	dom := box(t, [3]int{1, 1, 1}, 0, 0, 4, 4)
	in, err := NewInjector(dom, xOpen(), rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	sp := newSpecies(t, 0, -1)
	pop := Population{Rho: 1, Npcel: [3]int{2, 1, 1}, Drift: [3]float64{0.5}, Thermal: [3]float64{0.1, 0.1, 0.1}}

	q := -1. / (4 * math.Pi * 2)
	filled := in.Fill(sp, pop)
	require.Equal(t, 128, sp.Len())
	assert.InDelta(t, 128*q, filled, 1e-12)
	assert.InDelta(t, filled, sp.TotalCharge(), 1e-12)

	// layer cells are x in [0,1) and [3,4): 64 particles swapped for 64 new ones
	before := sp.TotalCharge()
	qrep := in.Repopulate(sp, pop)
	assert.Equal(t, 128, sp.Len())
	assert.InDelta(t, 0., qrep, 1e-12)
	assert.InDelta(t, before+qrep, sp.TotalCharge(), 1e-12)
}

func TestRepopulateWalls(t *testing.T) {
	dom := box(t, [3]int{1, 1, 1}, 0, 0, 4, 4)
	in, err := NewInjector(dom, xOpen(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	sp := newSpecies(t, 0, 1)
	sp.Create(particle.Particle{X: -0.5, Y: 2, Z: 2, Q: 1})        // escaped through an open face
	sp.Create(particle.Particle{X: 2, Y: 4.2, Z: 2, V: 1, Q: 1})   // reflected at y max
	sp.Create(particle.Particle{X: 2, Y: 2, Z: -0.3, W: -2, Q: 1}) // reflected at z min
	sp.Create(particle.Particle{X: 3.5, Y: 2, Z: 2, Q: 1})         // in the layer
	sp.Create(particle.Particle{X: 2, Y: 2, Z: 2, U: 1, Q: 1})     // untouched

	qrep := in.Repopulate(sp, Population{})
	assert.Equal(t, -2., qrep)
	require.Equal(t, 3, sp.Len())
	seen := map[float64]particle.Particle{}
	for i := range sp.Len() {
		p := sp.At(i)
		assert.True(t, dom.Global.Contains(p.X, p.Y, p.Z))
		seen[p.U+p.V+p.W] = p
	}
	assert.InDelta(t, 3.8, seen[-1].Y, 1e-12)
	assert.InDelta(t, 0.3, seen[2].Z, 1e-12)
	assert.Equal(t, 2., seen[1].X)
}

func TestRepopulateOnlyInjectsOwnLayer(t *testing.T) {
	// two ranks along x: only rank 1 touches the x max face
	walls := Walls{Kinds: [3][2]WallKind{{Reflect, Open}, {Reflect, Reflect}, {Reflect, Reflect}}, Layer: 1}
	pop := Population{Rho: 2, Npcel: [3]int{1, 1, 1}}
	for rank, want := range []int{0, 16} {
		dom := box(t, [3]int{2, 1, 1}, rank, 0, 4, 4)
		in, err := NewInjector(dom, walls, rand.New(rand.NewSource(4)))
		require.NoError(t, err)
		sp := newSpecies(t, 0, 1)
		in.Repopulate(sp, pop)
		assert.Equal(t, want, sp.Len(), "rank %d", rank)
		for i := range sp.Len() {
			p := sp.At(i)
			assert.GreaterOrEqual(t, p.X, 3.)
		}
	}
}
