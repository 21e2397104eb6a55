package colony

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed planets.yaml
var defaultPlanetsYAML []byte

type planetsFile struct {
	Planets []Planet `yaml:"planets"`
}

// Parse reads a YAML planet list.
func Parse(r io.Reader) ([]Planet, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f planetsFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode planets: %w", err)
	}
	return f.Planets, nil
}

// DefaultPlanets returns the built-in planet list.
func DefaultPlanets() []Planet {
	planets, err := Parse(bytes.NewReader(defaultPlanetsYAML))
	if err != nil {
		panic(fmt.Sprintf("built-in planets: %v", err))
	}
	return planets
}

// NewDefault returns a registry over the built-in planets.
func NewDefault() *Registry {
	r, err := NewRegistry(DefaultPlanets())
	if err != nil {
		panic(fmt.Sprintf("built-in planets: %v", err))
	}
	return r
}
