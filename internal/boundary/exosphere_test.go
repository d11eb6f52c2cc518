package boundary

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exosphere() Exosphere {
	return Exosphere{Sphere: Sphere{Radius: 1}, NSurf: 2, H: 0.5, Rmax: 3, Dt: 0.1, StepSkip: 2}
}

// integrate r^k exp(-(r-R)/h) over the shell with the midpoint rule
func integrate(e Exosphere, k float64) float64 {
	const n = 200000
	dr := (e.Rmax - e.Sphere.Radius) / n
	sum := 0.
	for i := range n {
		r := e.Sphere.Radius + (float64(i)+0.5)*dr
		sum += math.Pow(r, k) * math.Exp(-(r-e.Sphere.Radius)/e.H)
	}
	return sum * dr
}

func TestExosphereValidate(t *testing.T) {
	assert.NoError(t, exosphere().Validate())
	e := exosphere()
	e.H = 0
	assert.Error(t, e.Validate())
	e = exosphere()
	e.Rmax = 1
	assert.Error(t, e.Validate())
	e = exosphere()
	e.StepSkip = 0
	assert.Error(t, e.Validate())
}

func TestExosphereExpected(t *testing.T) {
	e := exosphere()
	assert.InDelta(t, integrate(e, 2), e.shell(e.Rmax-e.Sphere.Radius), 1e-8)
	want := 0.1 * 2 * 0.01 * 2 * 4 * math.Pi * integrate(e, 2) / 0.5
	assert.InDelta(t, want, e.Expected(Source{IonizationFrequency: 0.01, Weight: 0.5}), 1e-8)
	assert.Zero(t, e.Expected(Source{IonizationFrequency: 1}))
}

func TestInjectExosphere(t *testing.T) {
	e := exosphere()
	const target = 1000.3
	src := Source{IonizationFrequency: 1, Thermal: 0.01}
	src.Weight = e.Expected(Source{IonizationFrequency: 1, Weight: 1}) / target

	dom := box(t, [3]int{1, 1, 1}, 0, -4, 4, 8)
	in, err := NewInjector(dom, xOpen(), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	sp := newSpecies(t, 0, 1)
	qexo := in.InjectExosphere(sp, src, e)
	assert.Contains(t, []int{1000, 1001}, sp.Len())
	assert.InDelta(t, float64(sp.Len())*src.Weight, qexo, 1e-9)

	var sum float64
	for i := range sp.Len() {
		p := sp.At(i)
		r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		assert.GreaterOrEqual(t, r, 1-1e-9)
		assert.LessOrEqual(t, r, 3+1e-9)
		sum += r
	}
	mean := integrate(e, 3) / integrate(e, 2)
	assert.InDelta(t, mean, sum/float64(sp.Len()), 0.1)
}

func TestInjectExosphereKeepsOwnSubdomain(t *testing.T) {
	e := exosphere()
	src := Source{IonizationFrequency: 1}
	src.Weight = e.Expected(Source{IonizationFrequency: 1, Weight: 1}) / 500

	dom := box(t, [3]int{2, 1, 1}, 0, -4, 4, 8)
	in, err := NewInjector(dom, xOpen(), rand.New(rand.NewSource(10)))
	require.NoError(t, err)
	sp := newSpecies(t, 0, -1)
	qexo := in.InjectExosphere(sp, src, e)
	assert.Greater(t, sp.Len(), 150)
	assert.Less(t, sp.Len(), 350)
	assert.InDelta(t, -float64(sp.Len())*src.Weight, qexo, 1e-9)
	for i := range sp.Len() {
		p := sp.At(i)
		assert.Less(t, p.X, 0.)
	}
}
