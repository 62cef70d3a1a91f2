// Package config loads the server's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/report"
	"github.com/warp/capacity-engine/workload"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Policy   PolicyConfig   `toml:"policy"`
	Access   AccessConfig   `toml:"access"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Path of the SQLite file. ":memory:" keeps everything in process.
	Path string `toml:"path"`
}

type StorageConfig struct {
	PageSize int `toml:"page_size"`
}

// PolicyConfig holds the business constants of the engine.
type PolicyConfig struct {
	PrepRatio            float64 `toml:"prep_ratio"`
	WorkdaysPerWeek      int     `toml:"workdays_per_week"`
	FiscalYearStartMonth int     `toml:"fiscal_year_start_month"`
}

type AccessConfig struct {
	// PrivilegedRoles see unmapped and external hours.
	PrivilegedRoles []string `toml:"privileged_roles"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{Path: "capacity.db"},
		Storage:  StorageConfig{PageSize: generic.DefaultPageSize},
		Policy: PolicyConfig{
			PrepRatio:            workload.DefaultPrepRatio,
			WorkdaysPerWeek:      capacity.DefaultWorkdaysPerWeek,
			FiscalYearStartMonth: int(time.January),
		},
		Access: AccessConfig{PrivilegedRoles: []string{"admin"}},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	case c.Storage.PageSize <= 0:
		return fmt.Errorf("storage.page_size must be positive: %d", c.Storage.PageSize)
	case c.Policy.PrepRatio < 0:
		return fmt.Errorf("policy.prep_ratio must not be negative: %v", c.Policy.PrepRatio)
	case c.Policy.WorkdaysPerWeek < 1 || c.Policy.WorkdaysPerWeek > 7:
		return fmt.Errorf("policy.workdays_per_week out of range: %d", c.Policy.WorkdaysPerWeek)
	case c.Policy.FiscalYearStartMonth < 1 || c.Policy.FiscalYearStartMonth > 12:
		return fmt.Errorf("policy.fiscal_year_start_month out of range: %d", c.Policy.FiscalYearStartMonth)
	}
	return nil
}

// ReportOptions builds the engine options for a viewer role.
func (c *Config) ReportOptions(viewerRole string) report.Options {
	return report.Options{
		Privileged: c.IsPrivileged(viewerRole),
		Capacity:   capacity.Policy{WorkdaysPerWeek: c.Policy.WorkdaysPerWeek},
		Workload:   workload.Policy{PrepRatio: decimal.NewFromFloat(c.Policy.PrepRatio)},
	}
}

func (c *Config) IsPrivileged(role string) bool {
	return role != "" && lo.ContainsBy(c.Access.PrivilegedRoles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

func (c *Config) Periods() generic.PeriodConfig {
	return generic.PeriodConfig{FiscalYearStartMonth: time.Month(c.Policy.FiscalYearStartMonth)}
}
