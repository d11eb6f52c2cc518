package particle

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ids carry the owning rank in the high bits so they stay unique after migration
const rankShift = 40

type Species struct {
	Store
	Index int
	Name  string
	Qom   float64

	nextID uint64
}

func NewSpecies(index int, name string, qom float64, rank int, store Store) *Species {
	return &Species{
		Store:  store,
		Index:  index,
		Name:   name,
		Qom:    qom,
		nextID: uint64(rank)<<rankShift + 1,
	}
}

// Create appends p, giving it a fresh id when it has none.
func (s *Species) Create(p Particle) {
	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	}
	s.Append(p)
}

func (s *Species) Electronic() bool {
	return s.Qom < 0
}

func (s *Species) TotalCharge() float64 {
	c := s.Columns()
	return floats.Sum(c.Q)
}

// KineticEnergy sums 0.5*|v|^2/|qom| weighted by |q| over the species.
func (s *Species) KineticEnergy() float64 {
	c := s.Columns()
	if len(c.Q) == 0 {
		return 0
	}
	v2 := make([]float64, len(c.Q))
	for i := range v2 {
		v2[i] = c.U[i]*c.U[i] + c.V[i]*c.V[i] + c.W[i]*c.W[i]
	}
	weights := make([]float64, len(c.Q))
	for i := range weights {
		weights[i] = math.Abs(c.Q[i])
	}
	return 0.5 * floats.Dot(v2, weights) / math.Abs(s.Qom)
}
