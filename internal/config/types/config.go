package types

import (
	"time"

	"github.com/yusing/fswatch-forward/internal/common"
)

type (
	Config struct {
		WatchRoots []string `json:"watch_roots" yaml:"watch_roots" validate:"required,min=1,dive,required"`
		// Ignore is a list of glob patterns, nil means the default list.
		Ignore       *[]string     `json:"ignore,omitempty" yaml:"ignore,omitempty"`
		Debounce     time.Duration `json:"debounce" yaml:"debounce" validate:"gte=0"`
		PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
		ForcePolling bool          `json:"force_polling" yaml:"force_polling"`

		// ForwardTo is "host:port", it takes precedence over ForwardHost and ForwardPort.
		ForwardTo   string  `json:"forward_to,omitempty" yaml:"forward_to,omitempty"`
		ForwardHost string  `json:"forward_host" yaml:"forward_host"`
		ForwardPort int     `json:"forward_port" yaml:"forward_port"`
		Forward     Forward `json:"forward" yaml:"forward"`

		TimeoutShutdown time.Duration `json:"timeout_shutdown" yaml:"timeout_shutdown" validate:"gt=0"`
		MetricsAddr     string        `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
	}
	Forward struct {
		Codec          string        `json:"codec" yaml:"codec" validate:"oneof=listen jsonl"`
		QueueCapacity  int           `json:"queue_capacity" yaml:"queue_capacity" validate:"gt=0"`
		DialTimeout    time.Duration `json:"dial_timeout" yaml:"dial_timeout" validate:"gt=0"`
		SendTimeout    time.Duration `json:"send_timeout" yaml:"send_timeout" validate:"gt=0"`
		BackoffInitial time.Duration `json:"backoff_initial" yaml:"backoff_initial" validate:"gt=0"`
		BackoffMax     time.Duration `json:"backoff_max" yaml:"backoff_max" validate:"gtefield=BackoffInitial"`
	}
)

// DefaultIgnorePatterns are the version control directories and
// editor temporary files that are never forwarded.
var DefaultIgnorePatterns = []string{
	".git",
	".hg",
	".svn",
	".bundle",
	".DS_Store",
	"*.swp",
	"*.swx",
	"*~",
	".#*",
	"4913",
}

func DefaultConfig() *Config {
	return &Config{
		WatchRoots:   append([]string(nil), common.DefaultWatchDirs...),
		Debounce:     common.DebounceDefault,
		PollInterval: common.PollIntervalDefault,
		ForwardHost:  common.DefaultForwardHost,
		ForwardPort:  common.DefaultForwardPort,
		Forward: Forward{
			Codec:          CodecListen,
			QueueCapacity:  common.QueueCapacityDefault,
			DialTimeout:    common.DialTimeout,
			SendTimeout:    common.SendTimeout,
			BackoffInitial: common.BackoffInitialDefault,
			BackoffMax:     common.BackoffMaxDefault,
		},
		TimeoutShutdown: common.ShutdownTimeoutDefault,
	}
}

const (
	CodecListen = "listen"
	CodecJSONL  = "jsonl"
)

// IgnorePatterns returns the configured ignore patterns or the default ones.
func (cfg *Config) IgnorePatterns() []string {
	if cfg.Ignore == nil {
		return DefaultIgnorePatterns
	}
	return *cfg.Ignore
}
