package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/model"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk run configuration shape (YAML).
type Config struct {
	// Optional: load solver settings from a separate YAML (e.g. presets/*.yaml).
	// Fields set under Solver override the preset.
	PresetFile  string             `yaml:"preset_file"`
	Solver      SolverConfig       `yaml:"solver"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

type SolverConfig struct {
	Formulation    string         `yaml:"formulation" json:"formulation,omitempty"`
	Weighting      string         `yaml:"weighting" json:"weighting,omitempty"`
	Boundary       string         `yaml:"boundary" json:"boundary,omitempty"`
	SpaceSteps     int            `yaml:"n_s" json:"n_s,omitempty"`
	TimeSteps      int            `yaml:"n_t" json:"n_t,omitempty"`
	Domain         ade.DomainSpec `yaml:"domain" json:"domain,omitempty"`
	ParallelSweeps bool           `yaml:"parallel_sweeps" json:"parallel_sweeps,omitempty"`
}

type InstrumentConfig struct {
	Name         string  `yaml:"name"`
	Style        string  `yaml:"style"`
	Spot         float64 `yaml:"spot"`
	Strike       float64 `yaml:"strike"`
	Maturity     float64 `yaml:"maturity"`
	DomesticRate float64 `yaml:"domestic_rate"`
	ForeignRate  float64 `yaml:"foreign_rate"`
	Volatility   float64 `yaml:"volatility"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	// Unnamed instruments get their position so logs and CSV rows stay traceable.
	for i := range c.Instruments {
		if c.Instruments[i].Name == "" {
			c.Instruments[i].Name = fmt.Sprintf("instrument-%d", i+1)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.PresetFile != "" {
		presetPath := c.PresetFile
		if !filepath.IsAbs(presetPath) {
			// Relative to the config file first, then relative to cwd.
			cand := filepath.Join(filepath.Dir(path), presetPath)
			if _, err := os.Stat(cand); err == nil {
				presetPath = cand
			}
		}
		loaded, err := LoadPreset(presetPath)
		if err != nil {
			return nil, err
		}
		c.Solver = MergeSolver(loaded, c.Solver)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Instruments) == 0 {
		return errors.New("at least one instrument is required")
	}
	for i, ic := range c.Instruments {
		inst, err := ic.ToModel()
		if err != nil {
			return fmt.Errorf("instruments[%d]: %w", i, err)
		}
		if _, err := c.Solver.Options(inst.Style); err != nil {
			return fmt.Errorf("solver config invalid for %s: %w", inst.Style, err)
		}
	}
	return nil
}

// Options resolves the solver settings for one instrument style, starting from
// the style's reference defaults.
func (s SolverConfig) Options(style model.Style) (ade.Options, error) {
	opts := ade.DefaultOptions(style)
	if s.Formulation != "" {
		f, err := ade.LookupFormulation(s.Formulation)
		if err != nil {
			return ade.Options{}, err
		}
		opts.Formulation = f
	}
	if s.Weighting != "" {
		w, err := ade.ParseWeighting(s.Weighting)
		if err != nil {
			return ade.Options{}, err
		}
		opts.Formulation = opts.Formulation.WithWeighting(w)
	}
	if s.Boundary != "" {
		b, err := ade.ParseBoundary(s.Boundary)
		if err != nil {
			return ade.Options{}, err
		}
		opts.Formulation = opts.Formulation.WithBoundary(b)
	}
	if s.SpaceSteps < 0 || s.TimeSteps < 0 {
		return ade.Options{}, fmt.Errorf("%w: n_s and n_t must be positive", ade.ErrConfiguration)
	}
	if s.SpaceSteps != 0 {
		opts.SpaceSteps = s.SpaceSteps
	}
	if s.TimeSteps != 0 {
		opts.TimeSteps = s.TimeSteps
	}
	if s.Domain != (ade.DomainSpec{}) {
		if err := s.Domain.Validate(); err != nil {
			return ade.Options{}, err
		}
		opts.Domain = s.Domain
	}
	opts.ParallelSweeps = s.ParallelSweeps
	if _, err := ade.NewEngine(opts.Formulation, opts.ParallelSweeps); err != nil {
		return ade.Options{}, err
	}
	return opts, nil
}

func (ic InstrumentConfig) ToModel() (model.Instrument, error) {
	style, err := model.ParseStyle(ic.Style)
	if err != nil {
		return model.Instrument{}, err
	}
	inst := model.Instrument{
		Name:         strings.TrimSpace(ic.Name),
		Style:        style,
		Spot:         ic.Spot,
		Strike:       ic.Strike,
		Maturity:     ic.Maturity,
		DomesticRate: ic.DomesticRate,
		ForeignRate:  ic.ForeignRate,
		Volatility:   ic.Volatility,
	}
	if err := inst.Validate(); err != nil {
		return model.Instrument{}, err
	}
	return inst, nil
}

// ModelInstruments converts every configured instrument.
func (c *Config) ModelInstruments() ([]model.Instrument, error) {
	out := make([]model.Instrument, 0, len(c.Instruments))
	for i, ic := range c.Instruments {
		inst, err := ic.ToModel()
		if err != nil {
			return nil, fmt.Errorf("instruments[%d]: %w", i, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

type presetFileWrapper struct {
	Solver SolverConfig `yaml:"solver"`
}

// LoadPreset reads a solver preset file (a YAML document with a solver: block).
func LoadPreset(path string) (SolverConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SolverConfig{}, err
	}
	var w presetFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return SolverConfig{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return w.Solver, nil
}

// MergeSolver overlays non-zero fields from override onto base.
// This is used when loading a preset file and then applying overrides from the
// config or a request.
func MergeSolver(base, override SolverConfig) SolverConfig {
	out := base
	if override.Formulation != "" {
		out.Formulation = override.Formulation
	}
	if override.Weighting != "" {
		out.Weighting = override.Weighting
	}
	if override.Boundary != "" {
		out.Boundary = override.Boundary
	}
	if override.SpaceSteps != 0 {
		out.SpaceSteps = override.SpaceSteps
	}
	if override.TimeSteps != 0 {
		out.TimeSteps = override.TimeSteps
	}
	// The domain is replaced as a whole; mixing multipliers from two files would
	// produce an ambiguous domain.
	if override.Domain != (ade.DomainSpec{}) {
		out.Domain = override.Domain
	}
	if override.ParallelSweeps {
		out.ParallelSweeps = true
	}
	return out
}
