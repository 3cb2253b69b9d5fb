package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/yusing/fswatch-forward/internal/common"
	"github.com/yusing/fswatch-forward/internal/config/types"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/logging"
	"gopkg.in/yaml.v3"
)

type Config struct {
	value  *types.Config
	target types.ForwardTarget
}

// Load reads the config file at common.ConfigPath, applies environment
// overrides and validates the result.
func Load() (*Config, gperr.Error) {
	return LoadFile(common.ConfigPath)
}

// LoadFile is Load with an explicit config file path.
//
// A missing file is not an error, defaults and environment apply.
func LoadFile(path string) (*Config, gperr.Error) {
	value := types.DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, value); err != nil {
			return nil, gperr.ErrConfiguration.Subject(path).With(err)
		}
	case errors.Is(err, os.ErrNotExist):
		logging.Debug().Str("path", path).Msg("config file not found, using defaults")
	default:
		return nil, gperr.ErrConfiguration.Subject(path).With(err)
	}

	if err := applyEnv(value); err != nil {
		return nil, err
	}
	return New(value)
}

// New validates value and returns an immutable Config.
func New(value *types.Config) (*Config, gperr.Error) {
	target, err := value.Validate()
	if err != nil {
		return nil, err
	}
	return &Config{value: value, target: target}, nil
}

func decode(data []byte, value *types.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(value); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(value *types.Config) gperr.Error {
	errs := gperr.NewBuilder("env")

	if roots, ok := common.LookupEnv("ROOTS"); ok {
		value.WatchRoots = common.CommaSeperatedList(roots)
	}
	if ignore, ok := common.LookupEnv("IGNORE"); ok {
		patterns := common.CommaSeperatedList(ignore)
		value.Ignore = &patterns
	}
	envOverride(errs, "FORWARD_TO", &value.ForwardTo, parseString)
	envOverride(errs, "FORWARD_HOST", &value.ForwardHost, parseString)
	envOverride(errs, "FORWARD_PORT", &value.ForwardPort, strconv.Atoi)
	envOverride(errs, "CODEC", &value.Forward.Codec, parseString)
	envOverride(errs, "QUEUE_CAPACITY", &value.Forward.QueueCapacity, strconv.Atoi)
	envOverride(errs, "DEBOUNCE", &value.Debounce, time.ParseDuration)
	envOverride(errs, "POLL_INTERVAL", &value.PollInterval, time.ParseDuration)
	envOverride(errs, "FORCE_POLLING", &value.ForcePolling, strconv.ParseBool)
	envOverride(errs, "TIMEOUT_SHUTDOWN", &value.TimeoutShutdown, time.ParseDuration)
	envOverride(errs, "METRICS_ADDR", &value.MetricsAddr, parseString)

	if errs.HasError() {
		return gperr.ErrConfiguration.With(errs.Error())
	}
	return nil
}

func parseString(s string) (string, error) {
	return s, nil
}

func envOverride[T any](errs *gperr.Builder, key string, dst *T, parse func(string) (T, error)) {
	raw, ok := common.LookupEnv(key)
	if !ok {
		return
	}
	v, err := parse(raw)
	if err != nil {
		errs.Add(gperr.Wrap(err).Subject(key))
		return
	}
	*dst = v
}

func (cfg *Config) Value() *types.Config {
	return cfg.value
}

func (cfg *Config) Target() types.ForwardTarget {
	return cfg.target
}

// YAML returns the effective config as YAML.
func (cfg *Config) YAML() ([]byte, error) {
	return yaml.Marshal(cfg.value)
}
