package diagnostics

import (
	"flag"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/exopic/internal/collision"
	"github.com/wildstyl3r/exopic/internal/cycle"
	"github.com/wildstyl3r/exopic/internal/migration"
)

func report(c int, qrm float64, qrep, qdel float64, particles int) cycle.Report {
	return cycle.Report{
		Cycle: c,
		Qrm:   qrm,
		Counters: []cycle.Counters{
			{Qrep: qrep, Qdel: qdel, Particles: particles},
			{Qrep: -qrep, Particles: particles},
		},
		Collisions: []collision.Stats{{Tested: 10, Collided: 1}, {}},
		Migration:  []migration.Result{{Passes: 1, In: 0.5, Out: 0.5}, {}},
	}
}

func TestRunAggregatesRanks(t *testing.T) {
	run := NewRun([]string{"e", "i"})
	run.Add(report(2, 3, 1, -0.5, 4))
	run.Add(report(1, math.Inf(1), 1, 0, 5))
	run.Add(report(2, 2, 1, -0.5, 6))

	rows := run.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Cycle)
	assert.Equal(t, 2, rows[1].Ranks)
	assert.Equal(t, 2., rows[1].Qrm)
	assert.Equal(t, 2., rows[1].Counters[0].Qrep)
	assert.Equal(t, 10, rows[1].Counters[0].Particles)
	assert.Equal(t, 20, rows[1].Collisions[0].Tested)
	assert.Equal(t, 1, rows[1].Migration[0].Passes)

	totals := run.Totals()
	assert.Equal(t, 3., totals[0].Qrep)
	assert.Equal(t, -1., totals[0].Qdel)
	assert.Equal(t, 10, totals[0].Particles, "particle count is taken from the last cycle")
}

func TestSaveLedger(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	df := NewFlags(fs)
	require.NoError(t, fs.Parse([]string{"-n"}))

	run := NewRun([]string{"e", "i"})
	for _, c := range []int{10, 9, 100} {
		run.Add(report(c, 1, 0.25, 0, 3))
	}
	dir := t.TempDir()
	saved, err := df.Save(run, dir, "run.toml", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Conserved quantities", "Particles"}, saved)

	data, err := os.ReadFile(filepath.Join(dir, "run_ledger.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "cycle,Qrep_e,Qsphere_e,Qexo_e,Qion_e,Qlost_e,Qrep_i,Qsphere_i,Qexo_i,Qion_i,Qlost_i,Qrm", lines[0])
	assert.Equal(t, "9,0.25,0,0,0,0,-0.25,0,0,0,0,1", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "100,"))

	_, err = os.Stat(filepath.Join(dir, "run_cc.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "run_n.txt"))
	assert.NoError(t, err)
}

func TestPasses(t *testing.T) {
	run := NewRun([]string{"e", "i"})
	mean, variance := run.Passes()
	assert.Zero(t, mean)
	assert.Zero(t, variance)

	for c, passes := range []int{1, 3, 2} {
		rep := report(c+1, 1, 0, 0, 1)
		rep.Migration[1].Passes = passes
		run.Add(rep)
	}
	mean, variance = run.Passes()
	assert.InDelta(t, 2., mean, 1e-12)
	assert.InDelta(t, 1., variance, 1e-12)
}
