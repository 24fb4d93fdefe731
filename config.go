package vireo

import (
	"os"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vireo-engine/vireo/types"
)

const (
	DefaultNamespace     = "world"
	DefaultLogLevel      = "info"
	DefaultStepRate      = 20
	DefaultStatsdAddress = "localhost:8125"
)

var defaultConfig = WorldConfig{
	Namespace:     DefaultNamespace,
	LogLevel:      DefaultLogLevel,
	LogPretty:     false,
	StepRate:      DefaultStepRate,
	StatsdAddress: DefaultStatsdAddress,
	TraceAddress:  "",
}

type WorldConfig struct {
	// Namespace tells the logs and metrics of multiple worlds running side by
	// side apart. It must be alphanumeric with hyphens.
	Namespace string `config:"VIREO_NAMESPACE"`

	// LogLevel is the zerolog level the world logs at.
	LogLevel string `config:"VIREO_LOG_LEVEL"`

	// LogPretty switches the world from JSON logs to human readable console
	// output.
	LogPretty bool `config:"VIREO_LOG_PRETTY"`

	// StepRate is the number of simulated steps per simulated second. It fixes
	// the sim time each step advances and the default pacing of the run loop.
	StepRate int `config:"VIREO_STEP_RATE"`

	// StatsdAddress is the address metrics are emitted to. Empty disables
	// metrics.
	StatsdAddress string `config:"TELEMETRY_STATSD_ADDRESS"`

	// TraceAddress is the address of the trace agent. Empty disables tracing.
	TraceAddress string `config:"TELEMETRY_TRACE_ADDRESS"`
}

func loadWorldConfig() (*WorldConfig, error) {
	cfg := defaultConfig
	if err := config.FromEnv().To(&cfg); err != nil {
		return nil, eris.Wrap(err, "Failed to load config from env vars")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "Invalid config")
	}
	return &cfg, nil
}

// Validate validates the config values.
func (w *WorldConfig) Validate() error {
	if err := types.Namespace(w.Namespace).Validate(); err != nil {
		return err
	}
	if w.StepRate < 1 {
		return eris.New("VIREO_STEP_RATE must be at least 1")
	}
	if _, err := zerolog.ParseLevel(w.LogLevel); err != nil {
		return eris.Wrap(err, "VIREO_LOG_LEVEL is not a valid zerolog level")
	}
	return nil
}

// setupLogger applies the configured level and output format to the global
// logger.
func (w *WorldConfig) setupLogger() {
	if w.LogLevel != "" {
		level, err := zerolog.ParseLevel(w.LogLevel)
		if err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
	if w.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
