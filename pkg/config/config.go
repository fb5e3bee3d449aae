// Package config loads the verification harness configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/health"
)

// Duration wraps time.Duration so configs can say "10s" or "5m". Plain
// integers are read as nanoseconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts either a duration string or an integer.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q (use format like 30s, 5m)", s)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration value")
}

// Config represents the harness configuration
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Health    HealthConfig    `yaml:"health"`
	Execution ExecutionConfig `yaml:"execution"`
	Policy    engine.Policy   `yaml:"policy"`
	Reporting ReportingConfig `yaml:"reporting"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// FrameworkConfig contains general settings
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// HealthConfig contains recovery assessment settings
type HealthConfig struct {
	Thresholds   health.Thresholds `yaml:"thresholds"`
	ProbeAddress string            `yaml:"probe_address"`
	ProbeTimeout Duration          `yaml:"probe_timeout"`
}

// ExecutionConfig contains run execution settings
type ExecutionConfig struct {
	Cooldown Duration `yaml:"cooldown"`
	DiskPath string   `yaml:"disk_path"`
}

// ReportingConfig contains reporting and output settings
type ReportingConfig struct {
	OutputDir string `yaml:"output_dir"`
	KeepLastN int    `yaml:"keep_last_n"`
}

// EmergencyConfig contains emergency stop settings
type EmergencyConfig struct {
	StopFile     string   `yaml:"stop_file"`
	PollInterval Duration `yaml:"poll_interval"`
}

// MetricsConfig contains the Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Health: HealthConfig{
			Thresholds:   health.DefaultThresholds(),
			ProbeAddress: health.DefaultProbeAddress,
			ProbeTimeout: Duration(health.DefaultProbeTimeout),
		},
		Execution: ExecutionConfig{
			Cooldown: Duration(10 * time.Second),
			DiskPath: "/",
		},
		Policy: engine.Policy{
			CriticalRequiresRecovery: false,
		},
		Reporting: ReportingConfig{
			OutputDir: "./reports",
			KeepLastN: 50,
		},
		Emergency: EmergencyConfig{
			StopFile:     "/tmp/chaos-verify-stop",
			PollInterval: Duration(time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9464",
		},
	}
}

// Load loads configuration from a YAML file, starting from defaults. A
// missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("reporting.output_dir is required")
	}
	if c.Reporting.KeepLastN < 0 {
		return fmt.Errorf("reporting.keep_last_n must not be negative")
	}
	if c.Execution.Cooldown < 0 {
		return fmt.Errorf("execution.cooldown must not be negative")
	}
	if c.Health.ProbeAddress == "" {
		return fmt.Errorf("health.probe_address is required")
	}
	if c.Health.ProbeTimeout <= 0 {
		return fmt.Errorf("health.probe_timeout must be positive")
	}
	t := c.Health.Thresholds
	for name, v := range map[string]float64{
		"health.thresholds.cpu_percent":    t.CPUPercent,
		"health.thresholds.memory_percent": t.MemoryPercent,
		"health.thresholds.disk_percent":   t.DiskPercent,
	} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("%s must be in (0, 100]", name)
		}
	}
	return nil
}
