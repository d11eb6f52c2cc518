package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wildstyl3r/lxgata"

	"github.com/wildstyl3r/exopic/internal/boundary"
	"github.com/wildstyl3r/exopic/internal/collision"
	"github.com/wildstyl3r/exopic/internal/constants"
	"github.com/wildstyl3r/exopic/internal/fields"
	"github.com/wildstyl3r/exopic/internal/particle"
	"github.com/wildstyl3r/exopic/internal/topology"
)

type Config struct {
	OutputDir string
	MakeDir   bool
	Cycles    int
	Dt        float64
	Seed      int64
	Layout    string
	Verbose   bool

	Dims               [3]int
	Periodic           [3]bool
	BoxMin             [3]float64
	BoxMax             [3]float64
	Cells              [3]int
	MaxMigrationPasses int
	LedgerTolerance    float64

	Obstacle   ObstacleParameters
	Collisions CollisionParameters
	Exosphere  ExosphereParameters
	Walls      WallParameters
	Species    []SpeciesParameters

	_table collision.Table
}

type ObstacleParameters struct {
	Enabled      bool
	Balance      bool // charge-balanced absorption, otherwise everything inside is removed
	Center       [3]float64
	Radius       float64
	PlanetOffset float64
}

type CollisionParameters struct {
	Enabled           bool
	CrossSection      float64
	NeutralDensity    float64 // uniform background when there is no exosphere
	StepSkip          int
	RealQom           float64
	SecondaryElectron string // species names
	SecondaryIon      string
	Thresholds        []ThresholdParameters
	CrossSectionsFile string // LXCat file, thresholds in eV
	ThresholdUnits    string
	EnergyScale       float64 // code energy units per eV
}

type ThresholdParameters struct {
	Energy   float64
	Ionizing bool
}

type ExosphereParameters struct {
	NSurf    float64
	H        float64
	Rmax     float64
	StepSkip int
}

type WallParameters struct {
	XLeft, XRight string
	YLeft, YRight string
	ZLeft, ZRight string
	Layer         int
}

type SpeciesParameters struct {
	Name    string
	Qom     float64
	Rho     float64
	Npcel   [3]int
	Drift   [3]float64
	Thermal [3]float64

	Exosphere           bool
	IonizationFrequency float64
	Weight              float64
	ExoThermal          float64
}

var defaultValues = map[string]any{
	"OutputDir":                 "output",
	"MakeDir":                   false,
	"Cycles":                    100,
	"Seed":                      int64(1),
	"Layout":                    string(particle.LayoutSoA),
	"Dims":                      [3]int{1, 1, 1},
	"LedgerTolerance":           1e-9,
	"Obstacle.Balance":          true,
	"Collisions.StepSkip":       1,
	"Collisions.RealQom":        constants.RealElectronQom,
	"Collisions.EnergyScale":    1.,
	"Collisions.ThresholdUnits": "eV",
	"Exosphere.StepSkip":        1,
	"Walls.XLeft":               string(boundary.Open),
	"Walls.XRight":              string(boundary.Open),
	"Walls.YLeft":               string(boundary.Open),
	"Walls.YRight":              string(boundary.Open),
	"Walls.ZLeft":               string(boundary.Open),
	"Walls.ZRight":              string(boundary.Open),
	"Walls.Layer":               1,
}

var fieldsXor = map[string][]string{
	"Collisions.Thresholds":        {"Collisions.CrossSectionsFile"},
	"Collisions.CrossSectionsFile": {"Collisions.Thresholds"},
}

var fieldsAnd = map[string][]string{
	"Obstacle.Enabled":   {"Obstacle.Radius", "Obstacle.Center"},
	"Collisions.Enabled": {"Collisions.CrossSection", "Collisions.SecondaryElectron", "Collisions.SecondaryIon"},
	"Exosphere.NSurf":    {"Exosphere.H", "Exosphere.Rmax"},
}

var valueUnits = map[string][]UnitElement{
	"Collisions.Thresholds": {
		{Class: Energy, Power: 1},
	},
}

func path(key string) []string {
	return strings.Split(key, ".")
}

// field walks a dotted key through nested structs.
func field(v reflect.Value, key string) reflect.Value {
	for _, name := range path(key) {
		v = v.FieldByName(name)
	}
	return v
}

// enabled is true for a defined key unless it is a false bool.
func (c *Config) enabled(key string, meta *toml.MetaData) bool {
	if !meta.IsDefined(path(key)...) {
		return false
	}
	f := field(reflect.ValueOf(c).Elem(), key)
	return f.Kind() != reflect.Bool || f.Bool()
}

func (c *Config) checkFieldProblems(meta *toml.MetaData) (ambiguities [][]string, missingDeps []string) {
	for key, alternatives := range fieldsXor {
		if !c.enabled(key, meta) {
			continue
		}
		var found []string
		for _, alt := range alternatives {
			if meta.IsDefined(path(alt)...) {
				found = append(found, alt)
			}
		}
		if len(found) > 0 && key < found[0] {
			ambiguities = append(ambiguities, append([]string{key}, found...))
		}
	}
	for key, requirements := range fieldsAnd {
		if !c.enabled(key, meta) {
			continue
		}
		for _, req := range requirements {
			if !meta.IsDefined(path(req)...) && !slices.Contains(missingDeps, req) {
				missingDeps = append(missingDeps, req)
			}
		}
	}
	slices.Sort(missingDeps)
	return
}

func (c *Config) applyDefaults(meta *toml.MetaData) {
	v := reflect.ValueOf(c).Elem()
	for key, value := range defaultValues {
		if !meta.IsDefined(path(key)...) {
			field(v, key).Set(reflect.ValueOf(value))
		}
	}
	if !meta.IsDefined("MaxMigrationPasses") {
		c.MaxMigrationPasses = 3 * max(c.Dims[0], c.Dims[1], c.Dims[2])
	}
}

// LoadConfig reads a TOML run description, fills defaults and checks it for
// consistency. The extension may be omitted.
func LoadConfig(configFileName string) (Config, toml.MetaData, error) {
	var config Config
	if filepath.Ext(configFileName) == "" {
		configFileName += ".toml"
	}
	meta, err := toml.DecodeFile(configFileName, &config)
	if err != nil {
		return config, meta, fmt.Errorf("unable to load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config, meta, fmt.Errorf("unable to load config: unknown keys %v", undecoded)
	}

	ambiguities, missingDeps := config.checkFieldProblems(&meta)
	if len(ambiguities) > 0 {
		return config, meta, fmt.Errorf("unable to load config: found ambiguities %v", ambiguities)
	}
	if len(missingDeps) > 0 {
		return config, meta, fmt.Errorf("unable to load config: required dependent fields not found %v", missingDeps)
	}
	config.applyDefaults(&meta)

	if err := config.validate(); err != nil {
		return config, meta, fmt.Errorf("invalid config %s: %w", configFileName, err)
	}
	if config.Collisions.Enabled {
		if config._table, err = config.loadTable(filepath.Dir(configFileName)); err != nil {
			return config, meta, fmt.Errorf("invalid config %s: %w", configFileName, err)
		}
	}
	return config, meta, nil
}

func (c *Config) validate() error {
	if _, err := particle.NewStore(particle.Layout(c.Layout), 0); err != nil {
		return err
	}
	switch {
	case c.Cycles < 0:
		return fmt.Errorf("negative cycle count %d", c.Cycles)
	case !(c.Dt > 0):
		return fmt.Errorf("time step must be positive, got %g", c.Dt)
	case c.MaxMigrationPasses < 1:
		return fmt.Errorf("MaxMigrationPasses must be at least 1, got %d", c.MaxMigrationPasses)
	case c.LedgerTolerance < 0:
		return fmt.Errorf("negative LedgerTolerance %g", c.LedgerTolerance)
	case len(c.Species) == 0:
		return fmt.Errorf("no species")
	}
	if _, err := c.Cartesian(); err != nil {
		return err
	}
	if err := c.WallKinds().Validate(); err != nil {
		return err
	}

	seen := map[string]struct{}{}
	sources := 0
	for i, sp := range c.Species {
		switch {
		case sp.Name == "":
			return fmt.Errorf("species %d has no name", i)
		case sp.Qom == 0:
			return fmt.Errorf("species %s: Qom must be non-zero", sp.Name)
		case sp.Npcel[0] < 0 || sp.Npcel[1] < 0 || sp.Npcel[2] < 0:
			return fmt.Errorf("species %s: negative Npcel %v", sp.Name, sp.Npcel)
		}
		if _, dup := seen[sp.Name]; dup {
			return fmt.Errorf("species %s defined twice", sp.Name)
		}
		seen[sp.Name] = struct{}{}
		if sp.Exosphere {
			if !(sp.IonizationFrequency > 0) || !(sp.Weight > 0) {
				return fmt.Errorf("species %s: exosphere source needs positive IonizationFrequency and Weight", sp.Name)
			}
			sources++
		}
	}
	if sources > 0 {
		if !c.Obstacle.Enabled {
			return fmt.Errorf("exosphere sources need an enabled obstacle")
		}
		if err := c.ExosphereModel().Validate(); err != nil {
			return err
		}
	}
	if c.Obstacle.Enabled && !(c.Obstacle.Radius > 0) {
		return fmt.Errorf("obstacle radius must be positive, got %g", c.Obstacle.Radius)
	}
	if c.Collisions.Enabled {
		if _, _, err := c.SecondaryIndices(); err != nil {
			return err
		}
	}
	return nil
}

// loadTable builds the threshold table from the inline list or the LXCat
// file, resolved relative to the config.
func (c *Config) loadTable(dir string) (collision.Table, error) {
	p := c.Collisions
	var collisions lxgata.Collisions
	if p.CrossSectionsFile != "" {
		file := p.CrossSectionsFile
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		var err error
		if collisions, err = lxgata.LoadCrossSections(file); err != nil {
			return nil, fmt.Errorf("cross sections %s: %w", file, err)
		}
	} else {
		units, conflicts, err := checkUnits([]string{p.ThresholdUnits})
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, fmt.Errorf("found threshold unit conflict: %v", conflicts)
		}
		thresholds := make([]collision.Threshold, len(p.Thresholds))
		for i, t := range p.Thresholds {
			joules := SI(t.Energy, valueUnits["Collisions.Thresholds"], units, true)
			thresholds[i] = collision.Threshold{Energy: joules / constants.ElectronCharge, Ionizing: t.Ionizing}
		}
		collisions = collision.Collisions(thresholds)
	}
	return collision.NewTable(collisions, p.EnergyScale)
}

func (c *Config) Table() collision.Table {
	return c._table
}

func (c *Config) SpeciesNames() []string {
	names := make([]string, len(c.Species))
	for i := range c.Species {
		names[i] = c.Species[i].Name
	}
	return names
}

func (c *Config) speciesIndex(name string) (int, error) {
	if i := slices.Index(c.SpeciesNames(), name); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("no species named %q", name)
}

// SecondaryIndices resolves the species that receive ionization products.
func (c *Config) SecondaryIndices() (electron, ion int, err error) {
	if electron, err = c.speciesIndex(c.Collisions.SecondaryElectron); err != nil {
		return
	}
	if c.Species[electron].Qom >= 0 {
		return -1, -1, fmt.Errorf("secondary electron species %s has non-negative Qom", c.Collisions.SecondaryElectron)
	}
	if ion, err = c.speciesIndex(c.Collisions.SecondaryIon); err != nil {
		return
	}
	if c.Species[ion].Qom <= 0 {
		return -1, -1, fmt.Errorf("secondary ion species %s has non-positive Qom", c.Collisions.SecondaryIon)
	}
	return
}

func (c *Config) Cartesian() (*topology.Cartesian, error) {
	return topology.NewCartesian(c.Dims, c.Periodic, topology.Box{Min: c.BoxMin, Max: c.BoxMax}, c.Cells)
}

func (c *Config) WallKinds() boundary.Walls {
	w := c.Walls
	return boundary.Walls{
		Kinds: [3][2]boundary.WallKind{
			{boundary.WallKind(w.XLeft), boundary.WallKind(w.XRight)},
			{boundary.WallKind(w.YLeft), boundary.WallKind(w.YRight)},
			{boundary.WallKind(w.ZLeft), boundary.WallKind(w.ZRight)},
		},
		Layer: w.Layer,
	}
}

func (c *Config) Sphere() boundary.Sphere {
	return boundary.NewSphere(c.Obstacle.Center, c.Obstacle.Radius, c.Obstacle.PlanetOffset)
}

// ExosphereModel is nil when no species is produced from the exosphere.
func (c *Config) ExosphereModel() *boundary.Exosphere {
	if !slices.ContainsFunc(c.Species, func(s SpeciesParameters) bool { return s.Exosphere }) {
		return nil
	}
	e := c.Exosphere
	return &boundary.Exosphere{Sphere: c.Sphere(), NSurf: e.NSurf, H: e.H, Rmax: e.Rmax, Dt: c.Dt, StepSkip: e.StepSkip}
}

// Neutrals is the exosphere profile around the obstacle when one is
// configured, otherwise the uniform background.
func (c *Config) Neutrals() fields.NeutralDensity {
	if c.Obstacle.Enabled && c.Exosphere.NSurf > 0 && c.Exosphere.H > 0 {
		s := c.Sphere()
		return fields.Exosphere{Center: s.Center, Radius: s.Radius, NSurf: c.Exosphere.NSurf, H: c.Exosphere.H}
	}
	return fields.Uniform(c.Collisions.NeutralDensity)
}

func (c *Config) CollisionParams() collision.Params {
	p := c.Collisions
	return collision.Params{CrossSection: p.CrossSection, Dt: c.Dt, StepSkip: p.StepSkip, RealQom: p.RealQom, Table: c._table}
}

func (s SpeciesParameters) Population() boundary.Population {
	return boundary.Population{Rho: s.Rho, Npcel: s.Npcel, Drift: s.Drift, Thermal: s.Thermal}
}

// Source is nil for species that are not produced from the exosphere.
func (s SpeciesParameters) Source() *boundary.Source {
	if !s.Exosphere {
		return nil
	}
	return &boundary.Source{IonizationFrequency: s.IonizationFrequency, Weight: s.Weight, Thermal: s.ExoThermal}
}
