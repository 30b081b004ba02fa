package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"prod"`
	Log       LogConfig       `yaml:"log"`
	DirtViz   DirtVizConfig   `yaml:"dirtviz"`
	Solenoid  SolenoidConfig  `yaml:"solenoid"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

type DirtVizConfig struct {
	BaseURL       string        `yaml:"base_url" env:"DIRTVIZ_BASE_URL" env-default:"https://dirtviz.jlab.ucsc.edu/api/"`
	Timeout       time.Duration `yaml:"timeout" env:"DIRTVIZ_TIMEOUT" env-default:"10s"`
	StreamTimeout time.Duration `yaml:"stream_timeout" env:"DIRTVIZ_STREAM_TIMEOUT" env-default:"15s"`
	Timezone      string        `yaml:"timezone" env:"DIRTVIZ_TIMEZONE" env-default:"America/Los_Angeles"`
	Stream        StreamConfig  `yaml:"stream"`
}

// StreamConfig names the sensor queried in streaming mode.
type StreamConfig struct {
	Sensor      string `yaml:"sensor" env:"DIRTVIZ_STREAM_SENSOR" env-default:"sen0308"`
	Measurement string `yaml:"measurement" env:"DIRTVIZ_STREAM_MEASUREMENT" env-default:"humidity"`
	CellID      int    `yaml:"cell_id" env:"DIRTVIZ_STREAM_CELL_ID" env-default:"1448"`
}

type SolenoidConfig struct {
	Host            string        `yaml:"host" env:"SOLENOID_HOST" env-default:"172.31.105.241"`
	Port            int           `yaml:"port" env:"SOLENOID_PORT" env-default:"80"`
	Timeout         time.Duration `yaml:"timeout" env:"SOLENOID_TIMEOUT" env-default:"5s"`
	MonitorInterval time.Duration `yaml:"monitor_interval" env:"SOLENOID_MONITOR_INTERVAL" env-default:"30s"`
	SummaryEvery    int           `yaml:"summary_every" env:"SOLENOID_SUMMARY_EVERY" env-default:"5"`
}

// BaseURL is the controller root, e.g. http://172.31.105.241:80.
func (c SolenoidConfig) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type SimulatorConfig struct {
	Address         string        `yaml:"address" env:"SIMULATOR_ADDRESS" env-default:":8080"`
	InitialMoisture float64       `yaml:"initial_moisture" env:"SIMULATOR_INITIAL_MOISTURE" env-default:"45"`
	CheckInterval   time.Duration `yaml:"check_interval" env:"SIMULATOR_CHECK_INTERVAL" env-default:"10s"`
}

// Load reads configuration from configPath, falling back to CONFIG_PATH.
// With neither set, only the environment (and an optional .env file) is used.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
		return validate(&cfg)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return validate(&cfg)
}

var errNotPositive = errors.New("must be positive")

func validate(cfg *Config) (*Config, error) {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"dirtviz.timeout", cfg.DirtViz.Timeout},
		{"dirtviz.stream_timeout", cfg.DirtViz.StreamTimeout},
		{"solenoid.timeout", cfg.Solenoid.Timeout},
		{"solenoid.monitor_interval", cfg.Solenoid.MonitorInterval},
		{"simulator.check_interval", cfg.Simulator.CheckInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return nil, fmt.Errorf("invalid config %s=%s: %w", d.name, d.value, errNotPositive)
		}
	}

	if cfg.Solenoid.SummaryEvery <= 0 {
		return nil, fmt.Errorf("invalid config solenoid.summary_every=%d: %w", cfg.Solenoid.SummaryEvery, errNotPositive)
	}

	return cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
