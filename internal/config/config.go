// Package config loads the planning core's own runtime knobs: whether to
// emit tracing, the scoped-executor drive timeout, and an optimizer-toggle
// override reserved for tests. Grounded on the teacher's
// `core/pkg/config.Load()` style -- read environment variables, fall back
// to defaults, return a plain struct -- rather than a generic
// configuration framework. This package only reads `ARROYO_PLANNER_*`
// variables: the SQL front-end and control plane that embed this core own
// their own configuration surfaces.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arroyo-project/planner/pkg/planerr"
)

// Config holds the planning core's runtime knobs.
type Config struct {
	ServiceName string `yaml:"service_name"`
	// TracingEnabled toggles whether internal/tracing installs an otel
	// tracer provider for the span cmd/arroyo-plan opens around a plan run.
	TracingEnabled bool `yaml:"tracing_enabled"`
	// BridgeTimeout is loaded and carried through Load/Default, but nothing
	// in the core reads it: runScoped in pkg/physical/bridge.go (§5) waits
	// for its goroutine with no deadline.
	BridgeTimeout time.Duration `yaml:"bridge_timeout"`
	// OptimizerPassesEnabled is reserved for tests: this port's physical
	// lowering (pkg/physical/relational.go) has no cost-based optimizer
	// pass to toggle in the first place (it is a direct structural
	// translation), so this knob currently has no effect anywhere in the
	// core. It is carried through Load/Default so a future optimizer pass
	// has a config surface ready rather than needing one threaded in
	// later.
	OptimizerPassesEnabled bool `yaml:"optimizer_passes_enabled"`
}

// Default returns the configuration used when no environment variable or
// config file overrides a knob.
func Default() *Config {
	return &Config{
		ServiceName:            "arroyo-planner",
		TracingEnabled:         false,
		BridgeTimeout:          30 * time.Second,
		OptimizerPassesEnabled: false,
	}
}

// Load builds a Config from Default, an optional YAML file named by
// ARROYO_PLANNER_CONFIG_FILE, and then ARROYO_PLANNER_* environment
// variables (environment always wins over the file, matching the
// teacher's env-first precedent -- the YAML path exists only for batch/CLI
// invocations where exporting several variables is inconvenient).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ARROYO_PLANNER_CONFIG_FILE"); path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("ARROYO_PLANNER_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("ARROYO_PLANNER_TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, planerr.Plan("config: ARROYO_PLANNER_TRACING_ENABLED must be a bool, got %q", v)
		}
		cfg.TracingEnabled = b
	}
	if v := os.Getenv("ARROYO_PLANNER_BRIDGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, planerr.Plan("config: ARROYO_PLANNER_BRIDGE_TIMEOUT must be a duration, got %q", v)
		}
		cfg.BridgeTimeout = d
	}
	if v := os.Getenv("ARROYO_PLANNER_OPTIMIZER_PASSES_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, planerr.Plan("config: ARROYO_PLANNER_OPTIMIZER_PASSES_ENABLED must be a bool, got %q", v)
		}
		cfg.OptimizerPassesEnabled = b
	}

	return cfg, nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return planerr.Wrap(planerr.KindInternal, err, "config: reading %s failed", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return planerr.Wrap(planerr.KindInternal, err, "config: parsing %s failed", path)
	}
	return nil
}
