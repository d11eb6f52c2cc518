// Package fault describes the conditions that must stop a run on every rank.
package fault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wildstyl3r/exopic/internal/particle"
)

var (
	ErrNegativeEnergy    = errors.New("negative post-collision energy")
	ErrMigrationDiverged = errors.New("migration did not settle")
	ErrChargeLedger      = errors.New("charge ledger out of balance")
)

// Fatal is a physically inconsistent state. It names the violated invariant
// and carries whatever species/particle context was available when it was
// detected.
type Fatal struct {
	Invariant   string
	Rank        int
	Species     int
	SpeciesName string
	Index       int                // particle index, -1 when not tied to one particle
	Particle    *particle.Particle // copy of the offending particle
	Detail      string
	Err         error
}

func (f *Fatal) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fatal: %s violated", f.Invariant)
	fmt.Fprintf(&b, " (rank %d, species %d", f.Rank, f.Species)
	if f.SpeciesName != "" {
		fmt.Fprintf(&b, " %q", f.SpeciesName)
	}
	b.WriteString(")")
	if f.Particle != nil {
		p := f.Particle
		fmt.Fprintf(&b, "\n\tparticle #%d id=%d x=(%g, %g, %g) v=(%g, %g, %g) q=%g",
			f.Index, p.ID, p.X, p.Y, p.Z, p.U, p.V, p.W, p.Q)
	}
	if f.Detail != "" {
		b.WriteString("\n\t")
		b.WriteString(f.Detail)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, "\n\tcause: %v", f.Err)
	}
	return b.String()
}

func (f *Fatal) Unwrap() error {
	return f.Err
}

// IsFatal reports whether err carries a Fatal anywhere in its chain.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}
