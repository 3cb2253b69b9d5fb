package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/yusing/fswatch-forward/internal/common"
	"github.com/yusing/fswatch-forward/internal/config"
	"github.com/yusing/fswatch-forward/internal/forwarder"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/logging"
	"github.com/yusing/fswatch-forward/internal/metrics"
	"github.com/yusing/fswatch-forward/internal/task"
	"github.com/yusing/fswatch-forward/internal/watcher"
	"github.com/yusing/fswatch-forward/pkg"
)

func main() {
	args := pkg.GetArgs(common.MainServerCommandValidator{})

	switch args.Command {
	case common.CommandVersion:
		os.Stdout.WriteString(pkg.GetVersion() + "\n")
		return
	case common.CommandValidate:
		cfg, err := config.Load()
		if err != nil {
			gperr.LogFatal("invalid config", err)
		}
		out, yamlErr := cfg.YAML()
		if yamlErr != nil {
			gperr.LogFatal("failed to print config", yamlErr)
		}
		os.Stdout.Write(out)
		return
	}

	logging.Info().Msgf("fswatch-forward version %s", pkg.GetVersion())

	cfg, err := config.Load()
	if err != nil {
		gperr.LogFatal("failed to load config", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	os.Exit(run(cfg, sig))
}

// run starts the watcher and the forwarder, then blocks until a
// termination signal arrives on sig or one of them stops on its own.
func run(cfg *config.Config, sig <-chan os.Signal) (exitCode int) {
	if common.PIDFile != "" {
		if err := writePIDFile(common.PIDFile); err != nil {
			gperr.LogError("failed to write pid file", err)
			return 1
		}
		defer os.Remove(common.PIDFile)
	}

	value := cfg.Value()
	parent := task.RootTask("fswatch", false)

	matcher, err := watcher.NewMatcher(value.IgnorePatterns())
	if err != nil {
		gperr.LogError("invalid ignore patterns", err)
		return 1
	}

	engine, err := watcher.Start(parent, watcher.Options{
		Roots:        value.WatchRoots,
		Debounce:     value.Debounce,
		PollInterval: value.PollInterval,
		ForcePolling: value.ForcePolling,
		Ignore:       matcher,
	})
	if err != nil {
		gperr.LogError("failed to start watcher", err)
		return 1
	}

	fwd, err := forwarder.New(parent, forwarder.Options{
		Target:          cfg.Target(),
		Codec:           value.Forward.Codec,
		QueueCapacity:   value.Forward.QueueCapacity,
		DialTimeout:     value.Forward.DialTimeout,
		SendTimeout:     value.Forward.SendTimeout,
		BackoffInitial:  value.Forward.BackoffInitial,
		BackoffMax:      value.Forward.BackoffMax,
		ShutdownTimeout: value.TimeoutShutdown * 2 / 3,
	})
	if err != nil {
		gperr.LogError("failed to start forwarder", err)
		engine.Task().Finish(err)
		return 1
	}
	fwd.Start()

	if value.MetricsAddr != "" {
		if _, err := metrics.StartServer(parent, value.MetricsAddr); err != nil {
			gperr.LogWarn("metrics disabled", err)
		}
	}

	go pump(engine, fwd)

	logging.Info().
		Interface("roots", engine.Roots()).
		Str("forward_to", cfg.Target().String()).
		Msg("started")

	if cause := task.WaitExit(sig, value.TimeoutShutdown, engine.Task(), fwd.Task()); cause != nil {
		return 1
	}
	return 0
}

// pump moves events from the engine to the forwarder in batch order.
// Errors are logged by the engine, they are drained here.
func pump(engine *watcher.Engine, fwd *forwarder.Forwarder) {
	events, errs := engine.Events(), engine.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			fwd.Push(ev)
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
