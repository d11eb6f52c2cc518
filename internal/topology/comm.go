package topology

import (
	"context"
	"fmt"
	"sync"
)

// Comm is the rank-to-rank primitive. Exchange is point-to-point between
// this rank and its peers; every peer must name this rank in turn. AllReduce
// is the only collective.
type Comm interface {
	Rank() int
	Size() int
	Exchange(ctx context.Context, peers []int, out map[int][]byte) (map[int][]byte, error)
	AllReduce(ctx context.Context, v int) (int, error)
}

// World runs every rank as a goroutine of one process.
type World struct {
	size    int
	links   [][]chan []byte // links[from][to]
	reducer *reducer
}

func NewWorld(size int) *World {
	w := &World{
		size:    size,
		links:   make([][]chan []byte, size),
		reducer: newReducer(size),
	}
	for from := range w.links {
		w.links[from] = make([]chan []byte, size)
		for to := range w.links[from] {
			w.links[from][to] = make(chan []byte, 1)
		}
	}
	return w
}

func (w *World) Size() int {
	return w.size
}

func (w *World) Comm(rank int) Comm {
	return &localComm{world: w, rank: rank}
}

type localComm struct {
	world *World
	rank  int
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.world.size }

func (c *localComm) Exchange(ctx context.Context, peers []int, out map[int][]byte) (map[int][]byte, error) {
	in := make(map[int][]byte, len(peers))
	for _, peer := range peers {
		if peer < 0 || peer >= c.world.size {
			return nil, fmt.Errorf("rank %d: no peer %d in a world of %d", c.rank, peer, c.world.size)
		}
		if peer == c.rank {
			in[peer] = out[peer]
			continue
		}
		select {
		case c.world.links[c.rank][peer] <- out[peer]:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for _, peer := range peers {
		if peer == c.rank {
			continue
		}
		select {
		case msg := <-c.world.links[peer][c.rank]:
			in[peer] = msg
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return in, nil
}

func (c *localComm) AllReduce(ctx context.Context, v int) (int, error) {
	return c.world.reducer.sum(ctx, v)
}

type generation struct {
	done   chan struct{}
	result int
}

type reducer struct {
	mu      sync.Mutex
	size    int
	arrived int
	acc     int
	current *generation
}

func newReducer(size int) *reducer {
	return &reducer{size: size, current: &generation{done: make(chan struct{})}}
}

func (r *reducer) sum(ctx context.Context, v int) (int, error) {
	r.mu.Lock()
	gen := r.current
	r.acc += v
	r.arrived++
	if r.arrived == r.size {
		gen.result = r.acc
		r.acc, r.arrived = 0, 0
		r.current = &generation{done: make(chan struct{})}
		close(gen.done)
	}
	r.mu.Unlock()

	select {
	case <-gen.done:
		return gen.result, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
