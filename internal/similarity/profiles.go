package similarity

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownProfile = errors.New("unknown similarity profile")

// Profiles maps profile names to weights.
type Profiles map[string]Weights

type profilesFile struct {
	Profiles map[string]Weights `yaml:"profiles"`
}

func DefaultProfiles() Profiles {
	profiles := Profiles{}
	for _, w := range []Weights{
		StoryWeights(),
		PreGenerationWeights(),
		PostGenerationContentWeights(),
		PostGenerationWeights(),
		RecencyWeights(),
	} {
		profiles[w.Name] = w
	}
	return profiles
}

// Get returns the named profile.
func (p Profiles) Get(name string) (Weights, error) {
	w, ok := p[strings.TrimSpace(name)]
	if !ok {
		return Weights{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return w, nil
}

// Names lists profile names in lexical order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadProfiles returns the default profiles with any profile named in the
// YAML file at path replacing the default of the same name. An empty path
// yields the defaults.
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	path = strings.TrimSpace(path)
	if path == "" {
		return profiles, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights file %s: %w", path, err)
	}
	overrides, err := ParseProfiles(raw)
	if err != nil {
		return nil, fmt.Errorf("parse weights file %s: %w", path, err)
	}
	for name, w := range overrides {
		profiles[name] = w
	}
	return profiles, nil
}

// ParseProfiles decodes and validates a YAML profiles document.
func ParseProfiles(raw []byte) (Profiles, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	var doc profilesFile
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Profiles{}, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	out := make(Profiles, len(doc.Profiles))
	for name, w := range doc.Profiles {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("profile name must not be empty")
		}
		w.Name = name
		if err := w.Validate(); err != nil {
			return nil, err
		}
		out[name] = w
	}
	return out, nil
}
