package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sentrywatch/internal/domain/entity"
)

// profileFile mirrors entity.InterestProfile's shape for YAML decoding; it
// exists only so the wire format can use snake_case keys without leaking
// struct tags onto the domain entity.
type profileFile struct {
	Description string             `yaml:"description"`
	Topics      []profileTopicFile `yaml:"topics"`
}

type profileTopicFile struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Weight   float64  `yaml:"weight"`
	Scope    string   `yaml:"scope"`
	Sources  []string `yaml:"sources"`
}

// LoadInterestProfile reads a user-authored interest profile from a YAML
// file. The path is expected to come from a trusted source (an environment
// variable set by whoever deploys the daemon), not untrusted user input.
func LoadInterestProfile(path string) (*entity.InterestProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interest profile: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse interest profile: %w", err)
	}

	profile := &entity.InterestProfile{
		Description: file.Description,
		Topics:      make([]entity.InterestTopic, 0, len(file.Topics)),
	}
	for _, t := range file.Topics {
		scope := entity.ScopeBroad
		if t.Scope == string(entity.ScopeNarrow) {
			scope = entity.ScopeNarrow
		}
		profile.Topics = append(profile.Topics, entity.InterestTopic{
			Name:     t.Name,
			Keywords: t.Keywords,
			Weight:   t.Weight,
			Scope:    scope,
			Sources:  t.Sources,
		})
	}
	return profile, nil
}
