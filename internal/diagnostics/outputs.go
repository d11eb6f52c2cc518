package diagnostics

import (
	"flag"
	"fmt"
	"math"
	"strconv"

	"github.com/wildstyl3r/exopic/internal/utils"
)

type table struct {
	saveFlag   *bool
	fileSuffix string
	columns    func(species []string) []string
	values     func(row *Row) []float64
}

// Flags selects the tables written at the end of a run.
type Flags struct {
	all    *bool
	tables map[string]table
}

func perSpecies(species []string, names ...string) []string {
	out := []string{"cycle"}
	for _, s := range species {
		for _, n := range names {
			out = append(out, n+"_"+s)
		}
	}
	return out
}

func NewFlags(fs *flag.FlagSet) Flags {
	return Flags{
		all: fs.Bool("all", false, "save every table"),
		tables: map[string]table{
			"Conserved quantities": {
				saveFlag:   fs.Bool("ledger", true, "save per-cycle charge bookkeeping"),
				fileSuffix: "ledger",
				columns: func(species []string) []string {
					return append(perSpecies(species, "Qrep", "Qsphere", "Qexo", "Qion", "Qlost"), "Qrm")
				},
				values: func(row *Row) (v []float64) {
					for _, c := range row.Counters {
						v = append(v, c.Qrep, c.Qdel, c.Qexo, c.Qion, c.Qlost)
					}
					return append(v, row.Qrm)
				},
			},
			"Collisions": {
				saveFlag:   fs.Bool("cc", false, "save collision counters"),
				fileSuffix: "cc",
				columns: func(species []string) []string {
					return perSpecies(species, "tested", "collided", "ionizing", "likely")
				},
				values: func(row *Row) (v []float64) {
					for _, c := range row.Collisions {
						v = append(v, float64(c.Tested), float64(c.Collided), float64(c.Ionizing), float64(c.Likely))
					}
					return
				},
			},
			"Migration": {
				saveFlag:   fs.Bool("mig", false, "save migration passes and migrated charge"),
				fileSuffix: "mig",
				columns: func(species []string) []string {
					return perSpecies(species, "passes", "Qin", "Qout")
				},
				values: func(row *Row) (v []float64) {
					for _, m := range row.Migration {
						v = append(v, float64(m.Passes), m.In, m.Out)
					}
					return
				},
			},
			"Particles": {
				saveFlag:   fs.Bool("n", false, "save particle counts"),
				fileSuffix: "n",
				columns: func(species []string) []string {
					return perSpecies(species, "N", "Count")
				},
				values: func(row *Row) (v []float64) {
					for _, c := range row.Counters {
						v = append(v, float64(c.Particles), c.Count)
					}
					return
				},
			},
		},
	}
}

func format(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Save writes every selected table of run under outputPath. Failures are
// reported after every table has been tried.
func (df Flags) Save(run *Run, outputPath, runName string, makeDir bool) (saved []string, err error) {
	rows := run.Rows()
	for name, t := range df.tables {
		if !*t.saveFlag && !*df.all {
			continue
		}
		data := make(utils.CSV, 0, len(rows))
		for _, row := range rows {
			line := []string{strconv.Itoa(row.Cycle)}
			for _, v := range t.values(row) {
				line = append(line, format(v))
			}
			data = append(data, line)
		}
		if werr := utils.WriteAsCSV(data, outputPath, t.fileSuffix, runName, makeDir, t.columns(run.Species())); werr != nil {
			err = fmt.Errorf("unable to save %s: %w", name, werr)
			continue
		}
		saved = append(saved, name)
	}
	return
}
