package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/planverify/verdict/pkg/gate"
	"github.com/planverify/verdict/pkg/linker"
)

const (
	EnvPipelineCatalogPath     = "VERDICT_PIPELINE_CATALOG_PATH"
	EnvPipelineGateTimeout     = "VERDICT_PIPELINE_GATE_TIMEOUT"
	EnvPipelineGateThreshold   = "VERDICT_PIPELINE_GATE_THRESHOLD"
	EnvPipelineGateConcurrency = "VERDICT_PIPELINE_GATE_CONCURRENCY"
	EnvPipelineAutoLink        = "VERDICT_PIPELINE_AUTO_LINK"
	EnvPipelineAddressAccept   = "VERDICT_PIPELINE_ADDRESS_ACCEPT"
	EnvPipelineCandidateFloor  = "VERDICT_PIPELINE_CANDIDATE_FLOOR"
)

// PipelineConfig holds the tunable thresholds of the validation
// pipeline. All confidence values default to the documented operating
// points and are exposed here because they were never verified against
// a canonical source.
type PipelineConfig struct {
	CatalogPath     string  `toml:"catalog_path"`
	GateTimeout     string  `toml:"gate_timeout"`
	GateThreshold   float64 `toml:"gate_threshold"`
	GateConcurrency int     `toml:"gate_concurrency"`
	AutoLink        float64 `toml:"auto_link"`
	AddressAccept   float64 `toml:"address_accept"`
	CandidateFloor  float64 `toml:"candidate_floor"`
}

// GatePolicy builds the gate policy from the configured overrides on
// top of the defaults.
func (c *PipelineConfig) GatePolicy() gate.Policy {
	policy := gate.DefaultPolicy()
	if c.GateThreshold > 0 {
		policy.DefaultThreshold = c.GateThreshold
	}
	if c.GateConcurrency > 0 {
		policy.MaxConcurrent = c.GateConcurrency
	}
	if d, err := time.ParseDuration(c.GateTimeout); err == nil && d > 0 {
		policy.Timeout = d
	}
	return policy
}

// LinkerConfig builds the linker thresholds.
func (c *PipelineConfig) LinkerConfig() linker.Config {
	cfg := linker.DefaultConfig()
	if c.AutoLink > 0 {
		cfg.AutoLink = c.AutoLink
	}
	if c.AddressAccept > 0 {
		cfg.AddressAccept = c.AddressAccept
	}
	if c.CandidateFloor > 0 {
		cfg.CandidateFloor = c.CandidateFloor
	}
	return cfg
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.CatalogPath != "" {
		c.CatalogPath = overlay.CatalogPath
	}
	if overlay.GateTimeout != "" {
		c.GateTimeout = overlay.GateTimeout
	}
	if overlay.GateThreshold != 0 {
		c.GateThreshold = overlay.GateThreshold
	}
	if overlay.GateConcurrency != 0 {
		c.GateConcurrency = overlay.GateConcurrency
	}
	if overlay.AutoLink != 0 {
		c.AutoLink = overlay.AutoLink
	}
	if overlay.AddressAccept != 0 {
		c.AddressAccept = overlay.AddressAccept
	}
	if overlay.CandidateFloor != 0 {
		c.CandidateFloor = overlay.CandidateFloor
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.CatalogPath == "" {
		c.CatalogPath = "rules.json"
	}
	if c.GateTimeout == "" {
		c.GateTimeout = "30s"
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineCatalogPath); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv(EnvPipelineGateTimeout); v != "" {
		c.GateTimeout = v
	}

	setFloat := func(envVar string, target *float64) {
		if v := os.Getenv(envVar); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*target = f
			}
		}
	}

	setFloat(EnvPipelineGateThreshold, &c.GateThreshold)
	setFloat(EnvPipelineAutoLink, &c.AutoLink)
	setFloat(EnvPipelineAddressAccept, &c.AddressAccept)
	setFloat(EnvPipelineCandidateFloor, &c.CandidateFloor)

	if v := os.Getenv(EnvPipelineGateConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GateConcurrency = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if _, err := time.ParseDuration(c.GateTimeout); err != nil {
		return fmt.Errorf("invalid gate_timeout: %w", err)
	}

	check := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1]: %g", name, v)
		}
		return nil
	}

	if err := check("gate_threshold", c.GateThreshold); err != nil {
		return err
	}
	if err := check("auto_link", c.AutoLink); err != nil {
		return err
	}
	if err := check("address_accept", c.AddressAccept); err != nil {
		return err
	}
	return check("candidate_floor", c.CandidateFloor)
}
