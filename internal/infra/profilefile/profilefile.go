package profilefile

import (
	"fmt"
	"os"
	"strings"

	"pacer_agent/internal/domain/behavior"

	"gopkg.in/yaml.v3"
)

// File models the activity profile YAML document.
type File struct {
	Weekday *ProfileEntry `yaml:"weekday"`
	Weekend *ProfileEntry `yaml:"weekend"`
}

// ProfileEntry is one day-type profile with "HH:MM" values.
type ProfileEntry struct {
	Start string   `yaml:"start"`
	End   string   `yaml:"end"`
	Peaks []string `yaml:"peaks"`
}

// Load reads activity profiles from path. An empty path yields the built-in
// profiles, and a day-type missing from the file keeps its built-in value.
func Load(path string) (behavior.Profiles, error) {
	if strings.TrimSpace(path) == "" {
		return behavior.DefaultProfiles(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return behavior.Profiles{}, fmt.Errorf("failed to read activity profiles: %w", err)
	}
	return Parse(content)
}

// Parse decodes a YAML document into validated profiles.
func Parse(content []byte) (behavior.Profiles, error) {
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return behavior.Profiles{}, fmt.Errorf("failed to parse activity profiles: %w", err)
	}

	profiles := behavior.DefaultProfiles()
	if f.Weekday != nil {
		p, err := f.Weekday.toProfile()
		if err != nil {
			return behavior.Profiles{}, fmt.Errorf("weekday: %w", err)
		}
		profiles.Weekday = p
	}
	if f.Weekend != nil {
		p, err := f.Weekend.toProfile()
		if err != nil {
			return behavior.Profiles{}, fmt.Errorf("weekend: %w", err)
		}
		profiles.Weekend = p
	}
	if err := profiles.Validate(); err != nil {
		return behavior.Profiles{}, err
	}
	return profiles, nil
}

func (e *ProfileEntry) toProfile() (behavior.ActivityProfile, error) {
	start, err := behavior.ParseTimeOfDay(e.Start)
	if err != nil {
		return behavior.ActivityProfile{}, fmt.Errorf("start: %w", err)
	}
	end, err := behavior.ParseTimeOfDay(e.End)
	if err != nil {
		return behavior.ActivityProfile{}, fmt.Errorf("end: %w", err)
	}
	peaks := make([]behavior.TimeOfDay, 0, len(e.Peaks))
	for _, raw := range e.Peaks {
		peak, err := behavior.ParseTimeOfDay(raw)
		if err != nil {
			return behavior.ActivityProfile{}, fmt.Errorf("peak: %w", err)
		}
		peaks = append(peaks, peak)
	}
	return behavior.ActivityProfile{Start: start, End: end, Peaks: peaks}, nil
}
