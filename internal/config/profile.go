package config

import (
	"encoding/json"
	"fmt"
	"os"

	"lotwatch/internal/domain"
)

// LoadPreferenceProfile reads a scoring preference profile from a JSON file:
//
//	{"name": "default", "desired_equipment": ["Heated seats", "..."]}
//
// An empty path yields a profile with no desired equipment, which leaves the
// equipment sub-score undefined.
func LoadPreferenceProfile(path string) (*domain.PreferenceProfile, error) {
	if path == "" {
		return &domain.PreferenceProfile{Name: "empty"}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preference profile: %w", err)
	}

	var raw struct {
		Name             string   `json:"name"`
		DesiredEquipment []string `json:"desired_equipment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse preference profile %s: %w", path, err)
	}
	if raw.Name == "" {
		raw.Name = "default"
	}

	return &domain.PreferenceProfile{
		Name:             raw.Name,
		DesiredEquipment: raw.DesiredEquipment,
	}, nil
}
