package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/exopic/internal/config"
	"github.com/wildstyl3r/exopic/internal/diagnostics"
)

const runConfig = `
Cycles = 6
Dt = 0.25
Seed = 5
Dims = [2, 1, 1]
BoxMax = [8.0, 4.0, 4.0]
Cells = [8, 4, 4]
Periodic = [false, true, false]

[Walls]
ZLeft = "reflect"
ZRight = "reflect"

[Obstacle]
Enabled = true
Center = [4.0, 2.0, 2.0]
Radius = 1.0

[Exosphere]
NSurf = 1.0
H = 0.5
Rmax = 1.8

[Collisions]
Enabled = true
CrossSection = 0.5
SecondaryElectron = "e"
SecondaryIon = "O+"
Thresholds = [{Energy = 1e-12, Ionizing = true}]

[[Species]]
Name = "e"
Qom = -64.0
Rho = 1.0
Npcel = [1, 1, 1]
Drift = [0.1, 0.0, 0.0]
Thermal = [0.2, 0.2, 0.2]

[[Species]]
Name = "H+"
Qom = 1.0
Rho = 1.0
Npcel = [1, 1, 1]
Drift = [0.1, 0.0, 0.0]
Thermal = [0.05, 0.05, 0.05]

[[Species]]
Name = "O+"
Qom = 0.0625
Exosphere = true
IonizationFrequency = 0.1
Weight = 0.01
ExoThermal = 0.01
`

func load(t *testing.T, body string) config.Config {
	file := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	cfg, _, err := config.LoadConfig(file)
	require.NoError(t, err)
	cfg.OutputDir = filepath.Dir(file)
	return cfg
}

func TestSimulate(t *testing.T) {
	cfg := load(t, runConfig)

	var progress []int
	r, err := simulate(context.Background(), &cfg, io.Discard, func(done int) {
		progress = append(progress, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, progress)

	rows := r.Rows()
	require.Len(t, rows, 6)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Cycle)
		assert.Equal(t, 2, row.Ranks)
		assert.Equal(t, 0., row.Counters[0].Qlost, "escaped particles are removed at the walls")
	}

	totals := r.Totals()
	assert.Greater(t, totals[0].Particles, 0)
	assert.Greater(t, totals[1].Particles, 0)
	assert.Greater(t, totals[2].Qexo, 0.)
	assert.Zero(t, totals[1].Qexo)
	assert.Less(t, totals[0].Qion, 0., "every collision ionizes")
	assert.Greater(t, totals[2].Qion, 0.)
	assert.Zero(t, totals[1].Qion)
	assert.InDelta(t, 0, totals[0].Qion+totals[2].Qion, 1e-12)

	fs := flag.NewFlagSet("exopic", flag.ContinueOnError)
	df := diagnostics.NewFlags(fs)
	require.NoError(t, fs.Parse(nil))
	saved, err := df.Save(r, cfg.OutputDir, "run.toml", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Conserved quantities"}, saved)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "run_ledger.txt"))
}

func TestSimulateIsReproducible(t *testing.T) {
	cfg := load(t, runConfig)
	cfg.Cycles = 3
	cfg.Layout = "aos"

	a, err := simulate(context.Background(), &cfg, io.Discard, nil)
	require.NoError(t, err)
	b, err := simulate(context.Background(), &cfg, io.Discard, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Totals(), b.Totals())
}

func TestSimulateCancelled(t *testing.T) {
	cfg := load(t, runConfig)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := simulate(ctx, &cfg, io.Discard, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.Rows())
}
