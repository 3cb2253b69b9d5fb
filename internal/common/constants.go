package common

import (
	"time"
)

const (
	DialTimeout = 5 * time.Second
	SendTimeout = 5 * time.Second
)

const ConfigFileName = "config.yml"

// default watch roots, relative to the working directory
var DefaultWatchDirs = []string{
	"src",
	"static/locales",
}

const (
	DefaultForwardHost = "10.23.42.1"
	DefaultForwardPort = 4000
)

const (
	DebounceDefault        = 250 * time.Millisecond
	PollIntervalDefault    = time.Second
	QueueCapacityDefault   = 1000
	BackoffInitialDefault  = time.Second
	BackoffMaxDefault      = 30 * time.Second
	ShutdownTimeoutDefault = 3 * time.Second
)
