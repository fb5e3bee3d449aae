package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog is a static collection of scenarios loaded from a YAML file.
type Catalog struct {
	Version   string     `yaml:"version"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// rawScenario mirrors Scenario with string durations so catalogs can say
// "30s" or "5m" instead of nanosecond integers.
type rawScenario struct {
	Name              string      `yaml:"name"`
	Kind              FaultKind   `yaml:"kind"`
	Impact            ImpactLevel `yaml:"impact"`
	Duration          string      `yaml:"duration"`
	Probability       *float64    `yaml:"probability"`
	Parameters        Params      `yaml:"parameters"`
	Description       string      `yaml:"description"`
	ExpectedBehavior  string      `yaml:"expected_behavior"`
	RecoveryTimeLimit string      `yaml:"recovery_time_limit"`
}

type rawCatalog struct {
	Version   string        `yaml:"version"`
	Scenarios []rawScenario `yaml:"scenarios"`
}

// LoadCatalog reads a scenario catalog from a YAML file, applies defaults
// and validates every entry.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a catalog from YAML bytes.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	if len(raw.Scenarios) == 0 {
		return nil, fmt.Errorf("catalog defines no scenarios")
	}

	cat := &Catalog{Version: raw.Version}
	for i, rs := range raw.Scenarios {
		s, err := rs.toScenario()
		if err != nil {
			return nil, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		s = s.Normalize()
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		cat.Scenarios = append(cat.Scenarios, s)
	}

	return cat, nil
}

func (rs rawScenario) toScenario() (Scenario, error) {
	s := Scenario{
		Name:             rs.Name,
		Kind:             rs.Kind,
		Impact:           rs.Impact,
		Probability:      DefaultProbability,
		Parameters:       rs.Parameters,
		Description:      rs.Description,
		ExpectedBehavior: rs.ExpectedBehavior,
	}
	// An absent key gets the default; an explicit 0.0 means "never fires"
	// and must survive the round trip.
	if rs.Probability != nil {
		s.Probability = *rs.Probability
	}

	if rs.Duration != "" {
		d, err := time.ParseDuration(rs.Duration)
		if err != nil {
			return Scenario{}, fmt.Errorf("invalid duration %q (use format like 30s, 5m)", rs.Duration)
		}
		s.Duration = d
	}

	if rs.RecoveryTimeLimit != "" {
		d, err := time.ParseDuration(rs.RecoveryTimeLimit)
		if err != nil {
			return Scenario{}, fmt.Errorf("invalid recovery_time_limit %q", rs.RecoveryTimeLimit)
		}
		s.RecoveryTimeLimit = d
	}

	return s, nil
}
