package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Limits holds the intake form validation bounds. The defaults mirror the
// ranges the consultation wizard enforces client-side; a deployment can
// override them with a YAML file.
type Limits struct {
	MinAge        int     `yaml:"min_age"`
	MaxAge        int     `yaml:"max_age"`
	MinSleepHours float64 `yaml:"min_sleep_hours"`
	MaxSleepHours float64 `yaml:"max_sleep_hours"`
	MinRating     int     `yaml:"min_rating"`
	MaxRating     int     `yaml:"max_rating"`

	// Medical report uploads: a file is accepted when either its extension
	// or its mimetype matches.
	AllowedExtensions []string `yaml:"allowed_extensions"`
	AllowedMimetypes  []string `yaml:"allowed_mimetypes"`
}

// DefaultLimits returns the built-in validation bounds.
func DefaultLimits() Limits {
	return Limits{
		MinAge:            1,
		MaxAge:            120,
		MinSleepHours:     1,
		MaxSleepHours:     24,
		MinRating:         1,
		MaxRating:         10,
		AllowedExtensions: []string{"pdf", "png", "jpeg", "jpg"},
		AllowedMimetypes: []string{
			"application/pdf",
			"image/png",
			"image/jpeg",
		},
	}
}

// LoadLimits loads validation limits from a YAML file. An empty path returns
// the defaults. Fields missing from the file keep their default values.
func LoadLimits(path string) (Limits, error) {
	limits := DefaultLimits()
	if path == "" {
		return limits, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return limits, err
	}
	if err := yaml.Unmarshal(b, &limits); err != nil {
		return limits, err
	}
	return limits, nil
}
