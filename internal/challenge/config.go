// Package challenge handles author-side challenge definitions: YAML
// configuration, pre-flight validation, and derivation of the constants
// the checker binary is built with.
package challenge

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gate/internal/validate"
)

// DefaultFlagFile is used when a config does not name a flag file.
const DefaultFlagFile = "flag"

// Config is a challenge definition as written by an author.
type Config struct {
	Name      string `yaml:"name"`
	Plaintext string `yaml:"plaintext"`
	XORKey    int    `yaml:"xor_key"`
	Positions []int  `yaml:"positions"`
	FlagFile  string `yaml:"flag_file"`
}

// Load reads and parses a challenge config file. Missing optional fields
// receive their defaults; no validation happens here.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config: %w", err)
	}

	if cfg.FlagFile == "" {
		cfg.FlagFile = DefaultFlagFile
	}

	return cfg, nil
}

// Validate runs every pre-flight check and returns all violations, not
// just the first one.
func (c Config) Validate() []error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}

	if c.Plaintext == "" {
		errs = append(errs, errors.New("plaintext must not be empty"))
	} else {
		if len(c.Plaintext) < 3 {
			errs = append(errs, fmt.Errorf("plaintext must be at least 3 bytes, got %d", len(c.Plaintext)))
		}
		for i := 0; i < len(c.Plaintext); i++ {
			if c.Plaintext[i] < 0x20 || c.Plaintext[i] > 0x7E {
				errs = append(errs, fmt.Errorf("plaintext byte %d is not printable ASCII", i))
				break
			}
		}
	}

	if c.XORKey < 0 || c.XORKey > 255 {
		errs = append(errs, fmt.Errorf("xor_key must be in 0..255, got %d", c.XORKey))
	}

	seen := make(map[int]bool)
	for _, p := range c.Positions {
		if p < 0 || p >= len(c.Plaintext) {
			errs = append(errs, fmt.Errorf("position %d is out of range for a %d-byte plaintext", p, len(c.Plaintext)))
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("position %d appears more than once", p))
		}
		seen[p] = true
	}

	return errs
}

// Build validates the config and assembles the runtime challenge, deriving
// the aggregate targets and, when no positions were given, the structural
// position set.
func (c Config) Build() (validate.Challenge, error) {
	if errs := c.Validate(); len(errs) > 0 {
		return validate.Challenge{}, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	positions := c.Positions
	if len(positions) == 0 {
		positions = nil // let validate derive the structural set
	}

	return validate.New([]byte(c.Plaintext), byte(c.XORKey), positions), nil
}
