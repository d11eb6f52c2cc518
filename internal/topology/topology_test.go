package topology

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/exopic/internal/particle"
)

func unitCube(w float64) Box {
	return Box{Max: [3]float64{w, w, w}}
}

func TestNewCartesianValidation(t *testing.T) {
	table := []struct {
		name  string
		dims  [3]int
		cells [3]int
		box   Box
		ok    bool
	}{
		{"even split", [3]int{2, 1, 1}, [3]int{4, 2, 2}, unitCube(1), true},
		{"zero ranks", [3]int{0, 1, 1}, [3]int{4, 2, 2}, unitCube(1), false},
		{"uneven split", [3]int{3, 1, 1}, [3]int{4, 2, 2}, unitCube(1), false},
		{"empty box", [3]int{1, 1, 1}, [3]int{1, 1, 1}, Box{}, false},
	}
	for _, tc := range table {
		_, err := NewCartesian(tc.dims, [3]bool{}, tc.box, tc.cells)
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.Error(t, err, tc.name)
		}
	}
}

func TestSubdomainBoundsAndNeighbors(t *testing.T) {
	c, err := NewCartesian([3]int{3, 2, 1}, [3]bool{false, true, false}, Box{Max: [3]float64{3, 2, 1}}, [3]int{6, 4, 2})
	require.NoError(t, err)
	require.Equal(t, 6, c.Size())

	s := c.Subdomain(4) // coords (1, 1, 0)
	assert.Equal(t, [3]int{1, 1, 0}, s.Coords)
	assert.Equal(t, [3]float64{1, 1, 0}, s.Bounds.Min)
	assert.Equal(t, [3]float64{2, 2, 1}, s.Bounds.Max)
	assert.Equal(t, [3]int{2, 2, 2}, s.Cells)
	assert.InDelta(t, 0.5, s.Cell[0], 1e-15)

	r, ok := s.Neighbor([3]int{1, 0, 0})
	assert.True(t, ok)
	assert.Equal(t, 5, r)
	// y is periodic with two ranks: +1 wraps to coords (1, 0, 0)
	r, ok = s.Neighbor([3]int{0, 1, 0})
	assert.True(t, ok)
	assert.Equal(t, 1, r)
	_, ok = s.Neighbor([3]int{0, 0, 1})
	assert.False(t, ok, "z is closed with a single rank")

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 5}, s.Neighbors())
}

func TestOffsetAndWrap(t *testing.T) {
	c, _ := NewCartesian([3]int{2, 1, 1}, [3]bool{true, false, false}, unitCube(2), [3]int{4, 2, 2})
	s := c.Subdomain(1)
	assert.Equal(t, [3]int{-1, 0, 0}, s.Offset(0.5, 1, 1))
	assert.Equal(t, [3]int{1, 1, -1}, s.Offset(2.5, 2, -0.1))
	assert.Equal(t, [3]int{}, s.Offset(1.5, 1, 1))

	p := particle.Particle{X: 2.25, Y: 3}
	s.Wrap(&p, s.Offset(p.X, p.Y, p.Z))
	assert.InDelta(t, 0.25, p.X, 1e-15)
	assert.Equal(t, 3., p.Y, "non-periodic axes are left alone")

	p.X = -0.5
	s.Wrap(&p, [3]int{-1, 0, 0})
	assert.Equal(t, -0.5, p.X, "only the rank on the global face wraps")
	first := c.Subdomain(0)
	first.Wrap(&p, [3]int{-1, 0, 0})
	assert.InDelta(t, 1.5, p.X, 1e-15)

	p.X = -1e-300
	first.Wrap(&p, [3]int{-1, 0, 0})
	assert.Less(t, p.X, 2.)
}

func TestWorldExchange(t *testing.T) {
	w := NewWorld(3)
	ctx := context.Background()
	var wg sync.WaitGroup
	got := make([]map[int][]byte, 3)
	for rank := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			comm := w.Comm(rank)
			var peers []int
			for p := range 3 {
				if p != rank {
					peers = append(peers, p)
				}
			}
			out := map[int][]byte{}
			for _, p := range peers {
				out[p] = []byte{byte(rank), byte(p)}
			}
			in, err := comm.Exchange(ctx, peers, out)
			assert.NoError(t, err)
			got[rank] = in
		}()
	}
	wg.Wait()
	for rank := range 3 {
		for from, msg := range got[rank] {
			assert.Equal(t, []byte{byte(from), byte(rank)}, msg)
		}
		assert.Len(t, got[rank], 2)
	}
}

func TestWorldAllReduce(t *testing.T) {
	w := NewWorld(4)
	var wg sync.WaitGroup
	results := make([][]int, 4)
	for rank := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			comm := w.Comm(rank)
			for round := range 3 {
				sum, err := comm.AllReduce(context.Background(), rank*round)
				assert.NoError(t, err)
				results[rank] = append(results[rank], sum)
			}
		}()
	}
	wg.Wait()
	for rank := range 4 {
		assert.Equal(t, []int{0, 6, 12}, results[rank])
	}
}

func TestAllReduceHonoursCancel(t *testing.T) {
	w := NewWorld(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Comm(0).AllReduce(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
