package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"timecard/internal/domain"
)

// Config models timecard.yml.
type Config struct {
	Shift struct {
		ID             string   `yaml:"id"`
		StartTime      string   `yaml:"start_time"`
		OfficeEndTime  string   `yaml:"office_end_time"`
		EndTime        string   `yaml:"end_time"`
		OnlyGoWorkMode bool     `yaml:"only_go_work_mode"`
		ShowPunch      bool     `yaml:"show_punch"`
		MinWorkHours   *float64 `yaml:"min_work_hours"`
	} `yaml:"shift"`
	Reminders struct {
		Enabled     bool `yaml:"enabled"`
		LeadMinutes int  `yaml:"lead_minutes"`
	} `yaml:"reminders"`
	Gating struct {
		Enabled            bool `yaml:"enabled"`
		CheckInLeadMinutes int  `yaml:"check_in_lead_minutes"`
		AutoResetHours     int  `yaml:"auto_reset_hours"`
	} `yaml:"gating"`
}

// ShiftConfig converts the configured shift into the domain type.
func (c *Config) ShiftConfig() domain.ShiftConfig {
	return domain.ShiftConfig{
		ID:             c.Shift.ID,
		StartTime:      c.Shift.StartTime,
		OfficeEndTime:  c.Shift.OfficeEndTime,
		EndTime:        c.Shift.EndTime,
		OnlyGoWorkMode: c.Shift.OnlyGoWorkMode,
		ShowPunch:      c.Shift.ShowPunch,
		MinWorkHours:   c.Shift.MinWorkHours,
	}
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with tc shift import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Shift.ID == "" {
		return fmt.Errorf("config.shift.id is required")
	}
	for field, v := range map[string]string{
		"config.shift.start_time":      c.Shift.StartTime,
		"config.shift.office_end_time": c.Shift.OfficeEndTime,
		"config.shift.end_time":        c.Shift.EndTime,
	} {
		if v == "" {
			return fmt.Errorf("%s is required", field)
		}
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("%s must be HH:mm, got %q", field, v)
		}
	}
	if c.Shift.MinWorkHours != nil && (*c.Shift.MinWorkHours <= 0 || *c.Shift.MinWorkHours > 24) {
		return fmt.Errorf("config.shift.min_work_hours must be in (0, 24]")
	}
	if c.Reminders.LeadMinutes < 0 {
		return fmt.Errorf("config.reminders.lead_minutes must not be negative")
	}
	if c.Gating.CheckInLeadMinutes < 0 {
		return fmt.Errorf("config.gating.check_in_lead_minutes must not be negative")
	}
	if c.Gating.AutoResetHours < 0 {
		return fmt.Errorf("config.gating.auto_reset_hours must not be negative")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "timecard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(shiftID string) string {
	return fmt.Sprintf(defaultTemplate, shiftID)
}

// Default returns the default Config struct for a shift.
func Default(shiftID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, shiftID))).Decode(&cfg)
	cfg.Shift.ID = shiftID
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `shift:
  id: %s
  start_time: "09:00"
  office_end_time: "18:00"
  end_time: "18:00"
  only_go_work_mode: false
  show_punch: false

reminders:
  enabled: true
  lead_minutes: 10

gating:
  enabled: false
  check_in_lead_minutes: 30
  auto_reset_hours: 0
`
