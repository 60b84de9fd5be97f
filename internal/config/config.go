// Package config provides YAML configuration for the simulation: colony
// capacities, population, ideal role ratios, and every timing knob. Values
// omitted from the file keep their defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hivesim/internal/hive"
)

// Duration wraps time.Duration so YAML values can be written as "500ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Config is the complete simulation configuration.
type Config struct {
	Seed     int64    `yaml:"seed"`
	Duration Duration `yaml:"duration"`

	Hive struct {
		CellCapacity   int `yaml:"cell_capacity"`
		CarryCapacity  int `yaml:"carry_capacity"`
		LarvaeCapacity int `yaml:"larvae_capacity"`
	} `yaml:"hive"`

	Population  map[string]int     `yaml:"population"`
	IdealRatios map[string]float64 `yaml:"ideal_ratios"`

	Bees struct {
		Lifespan       Duration `yaml:"lifespan"`
		WorkInterval   Duration `yaml:"work_interval"`
		NightRest      Duration `yaml:"night_rest"`
		PatrolDelay    Duration `yaml:"patrol_delay"`
		AttackResponse Duration `yaml:"attack_response"`
	} `yaml:"bees"`

	Queen struct {
		Lifespan        Duration `yaml:"lifespan"`
		WorkInterval    Duration `yaml:"work_interval"`
		NightRest       Duration `yaml:"night_rest"`
		MailboxTimeout  Duration `yaml:"mailbox_timeout"`
		RebalanceChance float64  `yaml:"rebalance_chance"`
		SnapshotChance  float64  `yaml:"snapshot_chance"`
	} `yaml:"queen"`

	Events struct {
		DayLength     Duration `yaml:"day_length"`
		NightLength   Duration `yaml:"night_length"`
		WeatherMin    Duration `yaml:"weather_min"`
		WeatherMax    Duration `yaml:"weather_max"`
		RainChance    float64  `yaml:"rain_chance"`
		RainMin       Duration `yaml:"rain_min"`
		RainMax       Duration `yaml:"rain_max"`
		AttackGrace   Duration `yaml:"attack_grace"`
		AttackMin     Duration `yaml:"attack_min"`
		AttackMax     Duration `yaml:"attack_max"`
		AttackChance  float64  `yaml:"attack_chance"`
		DayBoost      float64  `yaml:"day_boost"`
		AttackTimeout Duration `yaml:"attack_timeout"`
	} `yaml:"events"`

	Monitor struct {
		Interval   Duration `yaml:"interval"`
		ReportPath string   `yaml:"report_path"`
		DBPath     string   `yaml:"db_path"`
	} `yaml:"monitor"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns the intense short-run configuration.
func Default() *Config {
	c := &Config{
		Seed:     42,
		Duration: Duration(30 * time.Second),
	}

	c.Hive.CellCapacity = 100
	c.Hive.CarryCapacity = 5
	c.Hive.LarvaeCapacity = 20

	c.Population = map[string]int{
		"forager": 8,
		"storer":  6,
		"nurse":   4,
		"guard":   3,
	}

	c.IdealRatios = map[string]float64{
		"forager": 0.40,
		"storer":  0.25,
		"nurse":   0.25,
		"guard":   0.10,
	}

	c.Bees.Lifespan = Duration(20 * time.Second)
	c.Bees.WorkInterval = Duration(100 * time.Millisecond)
	c.Bees.NightRest = Duration(1 * time.Second)
	c.Bees.PatrolDelay = Duration(200 * time.Millisecond)
	c.Bees.AttackResponse = Duration(300 * time.Millisecond)

	c.Queen.Lifespan = Duration(60 * time.Second)
	c.Queen.WorkInterval = Duration(500 * time.Millisecond)
	c.Queen.NightRest = Duration(1 * time.Second)
	c.Queen.MailboxTimeout = Duration(100 * time.Millisecond)
	c.Queen.RebalanceChance = 0.2
	c.Queen.SnapshotChance = 0.1

	c.Events.DayLength = Duration(8 * time.Second)
	c.Events.NightLength = Duration(4 * time.Second)
	c.Events.WeatherMin = Duration(4 * time.Second)
	c.Events.WeatherMax = Duration(8 * time.Second)
	c.Events.RainChance = 0.3
	c.Events.RainMin = Duration(2 * time.Second)
	c.Events.RainMax = Duration(5 * time.Second)
	c.Events.AttackGrace = Duration(10 * time.Second)
	c.Events.AttackMin = Duration(5 * time.Second)
	c.Events.AttackMax = Duration(8 * time.Second)
	c.Events.AttackChance = 0.5
	c.Events.DayBoost = 1.5
	c.Events.AttackTimeout = Duration(5 * time.Second)

	c.Monitor.Interval = Duration(2 * time.Second)
	c.Monitor.ReportPath = "colony_report.json"
	c.Monitor.DBPath = "data/hivesim.db"

	c.Logging.Level = "info"
	return c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks capacities, role names, and the ratio table.
func (c *Config) Validate() error {
	if c.Hive.CellCapacity <= 0 {
		return fmt.Errorf("hive.cell_capacity must be positive, got %d", c.Hive.CellCapacity)
	}
	if c.Hive.CarryCapacity <= 0 {
		return fmt.Errorf("hive.carry_capacity must be positive, got %d", c.Hive.CarryCapacity)
	}
	if c.Hive.LarvaeCapacity <= 0 {
		return fmt.Errorf("hive.larvae_capacity must be positive, got %d", c.Hive.LarvaeCapacity)
	}
	if c.Duration.D() <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	for name, count := range c.Population {
		role, ok := hive.ParseRole(name)
		if !ok || role == hive.RoleQueen {
			return fmt.Errorf("population: unknown worker role %q", name)
		}
		if count < 0 {
			return fmt.Errorf("population: negative count for %q", name)
		}
	}

	var sum float64
	for name, frac := range c.IdealRatios {
		role, ok := hive.ParseRole(name)
		if !ok || role == hive.RoleQueen {
			return fmt.Errorf("ideal_ratios: unknown worker role %q", name)
		}
		if frac < 0 {
			return fmt.Errorf("ideal_ratios: negative fraction for %q", name)
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("ideal_ratios must sum to 1.0, got %.4f", sum)
	}

	return nil
}

// RoleCounts converts the population table to role tags.
func (c *Config) RoleCounts() map[hive.Role]int {
	out := make(map[hive.Role]int, len(c.Population))
	for name, count := range c.Population {
		if role, ok := hive.ParseRole(name); ok {
			out[role] = count
		}
	}
	return out
}

// Ratios converts the ideal ratio table to role tags.
func (c *Config) Ratios() map[hive.Role]float64 {
	out := make(map[hive.Role]float64, len(c.IdealRatios))
	for name, frac := range c.IdealRatios {
		if role, ok := hive.ParseRole(name); ok {
			out[role] = frac
		}
	}
	return out
}
