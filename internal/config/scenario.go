package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Scenario is one simulated route of the routesim CLI.
type Scenario struct {
	ID       string        `mapstructure:"id"`
	Source   string        `mapstructure:"source"` // "lat,lon"
	Target   string        `mapstructure:"target"` // "lat,lon"
	SpeedKmh float64       `mapstructure:"speed_kmh"`
	Interval time.Duration `mapstructure:"interval"`
}

// ScenarioFile is the YAML document routesim reads.
type ScenarioFile struct {
	OSRM      OSRMScenarioConfig `mapstructure:"osrm"`
	Defaults  ScenarioDefaults   `mapstructure:"defaults"`
	Scenarios []Scenario         `mapstructure:"scenarios"`
}

type OSRMScenarioConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScenarioDefaults struct {
	SpeedKmh float64       `mapstructure:"speed_kmh"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoadScenarios reads a scenario file. Scenarios without their own speed or
// interval inherit the file defaults, which in turn default to 30 km/h and
// one second.
func LoadScenarios(path string) (*ScenarioFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("osrm.base_url", "https://router.project-osrm.org")
	v.SetDefault("osrm.timeout", "5s")
	v.SetDefault("defaults.speed_kmh", 30.0)
	v.SetDefault("defaults.interval", "1s")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var file ScenarioFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decoding scenario file: %w", err)
	}

	for i := range file.Scenarios {
		s := &file.Scenarios[i]
		if s.ID == "" {
			s.ID = fmt.Sprintf("route-%d", i+1)
		}
		if s.SpeedKmh <= 0 {
			s.SpeedKmh = file.Defaults.SpeedKmh
		}
		if s.Interval <= 0 {
			s.Interval = file.Defaults.Interval
		}
	}

	return &file, nil
}
