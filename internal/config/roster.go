package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roster describes the team: the canonical assignee names items carry, plus
// the spellings and nicknames questions use for them.
type Roster struct {
	CurrentIteration string        `yaml:"current_iteration"`
	Assignees        []RosterEntry `yaml:"assignees"`
}

type RosterEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// LoadRoster reads the YAML roster file. An empty path is a valid setup
// without assignee matching.
func LoadRoster(path string) (Roster, error) {
	if path == "" {
		return Roster{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file: %w", err)
	}

	var roster Roster
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return Roster{}, fmt.Errorf("parse roster yaml: %w", err)
	}
	return roster, nil
}
