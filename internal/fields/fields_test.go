package fields

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
)

func subdomain(t *testing.T) topology.Subdomain {
	c, err := topology.NewCartesian([3]int{1, 1, 1}, [3]bool{}, topology.Box{Max: [3]float64{4, 4, 4}}, [3]int{4, 4, 4})
	require.NoError(t, err)
	return c.Subdomain(0)
}

func TestNearestCell(t *testing.T) {
	dom := subdomain(t)
	dims := [3]int{5, 5, 5}
	i, j, k := NearestCell(&dom, dims, 1.49, 1.5, 3.9)
	assert.Equal(t, []int{1, 2, 4}, []int{i, j, k})
	i, j, k = NearestCell(&dom, dims, -3, 10, 0)
	assert.Equal(t, []int{0, 4, 0}, []int{i, j, k}, "out of range positions clamp to the mesh")
}

func TestBulkVelocity(t *testing.T) {
	dom := subdomain(t)
	mesh := NewMesh(&dom, 1)
	store, _ := particle.NewStore(particle.LayoutAoS, 0)
	sp := particle.NewSpecies(0, "e", -1, 0, store)
	sp.Create(particle.Particle{X: 1, Y: 1, Z: 1, U: 2, V: -1, W: 0.5, Q: -1})
	sp.Create(particle.Particle{X: 1.1, Y: 0.9, Z: 1, U: 4, V: -1, W: 0.5, Q: -1})
	mesh.Deposit(&dom, sp)

	u0, v0, w0 := BulkVelocity(mesh, &dom, 0, 1, 1, 1)
	assert.InDelta(t, 3., u0, 1e-12)
	assert.InDelta(t, -1., v0, 1e-12)
	assert.InDelta(t, 0.5, w0, 1e-12)

	u0, v0, w0 = BulkVelocity(mesh, &dom, 0, 3, 3, 3)
	assert.Equal(t, [3]float64{}, [3]float64{u0, v0, w0}, "empty cell has no drift")
}

func TestExosphereProfile(t *testing.T) {
	e := Exosphere{Center: [3]float64{0, 0, 1}, Radius: 1, NSurf: 10, H: 0.5}
	assert.Equal(t, 10., e.At(0, 0, 1.5))
	assert.InDelta(t, 10*math.Exp(-2), e.At(2, 0, 1), 1e-12)
	assert.Equal(t, 3., Uniform(3).At(1, 2, 3))
}
