package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ade-pricer/internal/config"
)

// Preset is a named solver configuration stored as presets/<name>.yaml.
type Preset struct {
	Name   string              `json:"name"`
	File   string              `json:"file"`
	Solver config.SolverConfig `json:"solver"`
}

// LoadPresets reads every *.yaml / *.yml file in dir, sorted by name.
func LoadPresets(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}
	var out []Preset
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		sc, err := config.LoadPreset(path)
		if err != nil {
			return nil, err
		}
		out = append(out, Preset{
			Name:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			File:   path,
			Solver: sc,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindPreset returns the preset with the given name.
func FindPreset(dir, name string) (Preset, error) {
	presets, err := LoadPresets(dir)
	if err != nil {
		return Preset{}, err
	}
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("preset %q not found in %s", name, dir)
}
