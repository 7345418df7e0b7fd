package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tradedesk/internal/trades"
)

// Config models tradedesk.yml, the per-business configuration.
type Config struct {
	Business struct {
		Name            string   `yaml:"name"`
		PrimaryTrade    string   `yaml:"primary_trade"`
		SecondaryTrades []string `yaml:"secondary_trades"`
		Type            string   `yaml:"type"`
	} `yaml:"business"`
	Scheduling struct {
		DayStart        string `yaml:"day_start"`
		DayEnd          string `yaml:"day_end"`
		SlotMinutes     int    `yaml:"slot_minutes"`
		DefaultDuration int    `yaml:"default_duration"`
	} `yaml:"scheduling"`
	Estimates struct {
		TaxRate      float64 `yaml:"tax_rate"`
		ValidityDays int     `yaml:"validity_days"`
	} `yaml:"estimates"`
	Inventory struct {
		LowStockAlerts bool `yaml:"low_stock_alerts"`
	} `yaml:"inventory"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with td business config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Business.Name == "" {
		return fmt.Errorf("config.business.name is required")
	}
	if !trades.Known(c.Business.PrimaryTrade) {
		return fmt.Errorf("config.business.primary_trade %q is not a known trade", c.Business.PrimaryTrade)
	}
	for _, t := range c.Business.SecondaryTrades {
		if !trades.Known(t) {
			return fmt.Errorf("config.business.secondary_trades contains unknown trade %q", t)
		}
		if t == c.Business.PrimaryTrade {
			return fmt.Errorf("config.business.secondary_trades may not include the primary trade")
		}
	}
	if c.Business.Type != "solo" && c.Business.Type != "team" {
		return fmt.Errorf("config.business.type must be solo or team")
	}
	if c.Scheduling.SlotMinutes <= 0 {
		return fmt.Errorf("config.scheduling.slot_minutes must be positive")
	}
	if c.Scheduling.DefaultDuration <= 0 {
		return fmt.Errorf("config.scheduling.default_duration must be positive")
	}
	if c.Estimates.TaxRate < 0 || c.Estimates.TaxRate >= 1 {
		return fmt.Errorf("config.estimates.tax_rate must be in [0,1)")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "tradedesk.yml")
}

// GenerateDefault returns default config YAML for a business.
func GenerateDefault(businessName, primaryTrade string) string {
	cfg := trades.LookupOrDefault(primaryTrade)
	return fmt.Sprintf(defaultTemplate, businessName, cfg.ID, cfg.DefaultJobDuration)
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

// Default returns the default Config struct for a business.
func Default(businessName, primaryTrade string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(businessName, primaryTrade))).Decode(&cfg)
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

const defaultTemplate = `business:
  name: %s
  primary_trade: %s
  secondary_trades: []
  type: solo

scheduling:
  day_start: "08:00"
  day_end: "18:00"
  slot_minutes: 30
  default_duration: %d

estimates:
  tax_rate: 0.08
  validity_days: 30

inventory:
  low_stock_alerts: true
`
