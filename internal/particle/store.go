package particle

import "fmt"

// Store is a layout-agnostic particle container. Delete is a swap-erase:
// the last particle moves into the freed slot, so a caller walking the store
// must look at index i again after deleting it.
type Store interface {
	Len() int
	At(i int) Particle
	Set(i int, p Particle)
	Append(p Particle)
	Delete(i int)
	Reset()
	Columns() Columns
}

type Layout string

const (
	LayoutAoS Layout = "aos"
	LayoutSoA Layout = "soa"
)

func NewStore(layout Layout, capacity int) (Store, error) {
	switch layout {
	case LayoutAoS, "":
		return &AoS{items: make([]Particle, 0, capacity)}, nil
	case LayoutSoA:
		return newSoA(capacity), nil
	default:
		return nil, fmt.Errorf("unknown particle layout %q", layout)
	}
}

// AoS keeps one record per particle.
type AoS struct {
	items []Particle
}

func (s *AoS) Len() int              { return len(s.items) }
func (s *AoS) At(i int) Particle     { return s.items[i] }
func (s *AoS) Set(i int, p Particle) { s.items[i] = p }
func (s *AoS) Append(p Particle)     { s.items = append(s.items, p) }
func (s *AoS) Reset()                { s.items = s.items[:0] }

func (s *AoS) Delete(i int) {
	last := len(s.items) - 1
	s.items[i] = s.items[last]
	s.items = s.items[:last]
}

func (s *AoS) Columns() Columns {
	n := len(s.items)
	c := Columns{
		X: make([]float64, n), Y: make([]float64, n), Z: make([]float64, n),
		U: make([]float64, n), V: make([]float64, n), W: make([]float64, n),
		Q: make([]float64, n), ID: make([]uint64, n),
	}
	for i, p := range s.items {
		c.X[i], c.Y[i], c.Z[i] = p.X, p.Y, p.Z
		c.U[i], c.V[i], c.W[i] = p.U, p.V, p.W
		c.Q[i], c.ID[i] = p.Q, p.ID
	}
	return c
}

// SoA keeps one slice per attribute, the layout the mover and moment
// summation prefer.
type SoA struct {
	c Columns
}

func newSoA(capacity int) *SoA {
	return &SoA{c: Columns{
		X: make([]float64, 0, capacity), Y: make([]float64, 0, capacity), Z: make([]float64, 0, capacity),
		U: make([]float64, 0, capacity), V: make([]float64, 0, capacity), W: make([]float64, 0, capacity),
		Q: make([]float64, 0, capacity), ID: make([]uint64, 0, capacity),
	}}
}

func (s *SoA) Len() int { return len(s.c.Q) }

func (s *SoA) At(i int) Particle {
	return Particle{
		X: s.c.X[i], Y: s.c.Y[i], Z: s.c.Z[i],
		U: s.c.U[i], V: s.c.V[i], W: s.c.W[i],
		Q: s.c.Q[i], ID: s.c.ID[i],
	}
}

func (s *SoA) Set(i int, p Particle) {
	s.c.X[i], s.c.Y[i], s.c.Z[i] = p.X, p.Y, p.Z
	s.c.U[i], s.c.V[i], s.c.W[i] = p.U, p.V, p.W
	s.c.Q[i], s.c.ID[i] = p.Q, p.ID
}

func (s *SoA) Append(p Particle) {
	s.c.X = append(s.c.X, p.X)
	s.c.Y = append(s.c.Y, p.Y)
	s.c.Z = append(s.c.Z, p.Z)
	s.c.U = append(s.c.U, p.U)
	s.c.V = append(s.c.V, p.V)
	s.c.W = append(s.c.W, p.W)
	s.c.Q = append(s.c.Q, p.Q)
	s.c.ID = append(s.c.ID, p.ID)
}

func (s *SoA) Delete(i int) {
	last := s.Len() - 1
	s.Set(i, s.At(last))
	s.truncate(last)
}

func (s *SoA) Reset() { s.truncate(0) }

func (s *SoA) truncate(n int) {
	s.c.X, s.c.Y, s.c.Z = s.c.X[:n], s.c.Y[:n], s.c.Z[:n]
	s.c.U, s.c.V, s.c.W = s.c.U[:n], s.c.V[:n], s.c.W[:n]
	s.c.Q, s.c.ID = s.c.Q[:n], s.c.ID[:n]
}

// Columns returns the live slices; callers must not append to them.
func (s *SoA) Columns() Columns {
	return s.c
}
