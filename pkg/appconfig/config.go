// Package appconfig loads the YAML configuration shared by bufpoolctl and
// any other entry point wrapping core/bufferpool: pool sizing plus the
// nested logger and telemetry configs.
package appconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gojodb/bufferpool/pkg/bptelemetry"
	"github.com/gojodb/bufferpool/pkg/logger"
)

// Config is the top-level YAML document shape.
type Config struct {
	NumFrames int                `yaml:"num_frames"`
	PageSize  int                `yaml:"page_size"`
	Logger    logger.Config      `yaml:"logger"`
	Telemetry bptelemetry.Config `yaml:"telemetry"`
}

// Default returns sane defaults, used when no config file is supplied.
func Default() Config {
	return Config{
		NumFrames: 16,
		PageSize:  4096,
		Logger: logger.Config{
			Level: "info", Format: "console", OutputFile: "stdout",
			Sampling: logger.SamplingConfig{Enabled: true, Initial: 100, Thereafter: 100},
		},
		Telemetry: bptelemetry.Config{Enabled: false, ServiceName: "bufpoolctl", PrometheusPort: 9464, TraceSampleRatio: 1.0},
	}
}

// LoadFile reads and parses a YAML config file at path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("appconfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("appconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}
