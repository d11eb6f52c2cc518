package config

import (
	"fmt"

	"github.com/wildstyl3r/exopic/internal/constants"
	"github.com/wildstyl3r/exopic/internal/utils"
)

var unitToSI = map[string]float64{
	"eV":  constants.ElectronCharge,       // [J]
	"keV": 1e3 * constants.ElectronCharge, // [J]
	"J":   1,                              // [J]
}

type UnitClass int

const (
	Energy UnitClass = iota
)

var unitsInClass = map[UnitClass][]string{
	Energy: {"eV", "keV", "J"},
}

var classesOfUnits = map[string]UnitClass{
	"eV":  Energy,
	"keV": Energy,
	"J":   Energy,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

var defaultUnits = []string{"eV"}

// checkUnits extends units with a default for every class not mentioned and
// reports units that repeat a class or are not known at all.
func checkUnits(units []string) (extended, conflicts []string, err error) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if !known {
			return nil, nil, fmt.Errorf("unknown unit %q", unit)
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
		}
	}
	extended = append([]string{}, units...)
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// SI converts v given in units into SI (direct) or back from SI.
func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToSI[*unit]
			}
		} else {
			for range absPower {
				v /= unitToSI[*unit]
			}
		}
	}
	return v
}
